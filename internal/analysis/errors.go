// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means the backend did not answer within the analysis timeout.
	ErrTimeout = errors.New("analysis: backend timed out")
	// ErrUnavailable means the backend could not be reached or refused the request.
	ErrUnavailable = errors.New("analysis: backend unavailable")
	// ErrBadResponse means the backend answered with a body that could not be decoded.
	ErrBadResponse = errors.New("analysis: malformed backend response")
	// ErrEmptyReport is returned without contacting the backend when there is no device data.
	ErrEmptyReport = errors.New("analysis: no device data to analyze")
	// ErrEmptyResponse means the backend answered with an empty narrative.
	ErrEmptyResponse = errors.New("analysis: backend returned an empty result")
)

// BackendError wraps a sentinel with request context.
type BackendError struct {
	Sentinel error
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%v (%s)", e.Sentinel, e.Endpoint)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *BackendError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}
