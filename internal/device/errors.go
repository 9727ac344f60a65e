// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrConnect   = errors.New("device: connection failed")
	ErrShellInit = errors.New("device: interactive shell initialisation failed")
	ErrClosed    = errors.New("device: session closed")
)

// ConnectError reports that every connection attempt failed.
type ConnectError struct {
	Addr     string
	Attempts int
	Err      error // last underlying failure
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("device: connect %s failed after %d attempt(s): %v", e.Addr, e.Attempts, e.Err)
}

// Is lets errors.Is(err, ErrConnect) match.
func (e *ConnectError) Is(target error) bool { return target == ErrConnect }

func (e *ConnectError) Unwrap() error { return e.Err }

// ShellError reports that the session connected but no usable shell was obtained.
type ShellError struct {
	Addr string
	Err  error
}

func (e *ShellError) Error() string {
	return fmt.Sprintf("device: open shell on %s: %v", e.Addr, e.Err)
}

// Is lets errors.Is(err, ErrShellInit) match.
func (e *ShellError) Is(target error) bool { return target == ErrShellInit }

func (e *ShellError) Unwrap() error { return e.Err }
