// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text    string
	err     error
	timeout time.Duration
	calls   int
}

func (s *stubGenerator) Generate(context.Context, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubGenerator) Model() string          { return "stub" }
func (s *stubGenerator) Timeout() time.Duration { return s.timeout }

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	now := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestAnalyzer_Success(t *testing.T) {
	a := NewAnalyzer(&stubGenerator{text: "health score 97"})
	a.now = steppingClock(12 * time.Second)

	res, err := a.Analyze(context.Background(), sampleReport)
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, "health score 97", res.Narrative)
	assert.Equal(t, 12*time.Second, res.Elapsed)
	assert.Equal(t, "health score 97\n\n(AI analysis took 12s)", res.Text())
}

func TestAnalyzer_TimeoutFallsBack(t *testing.T) {
	gen := &stubGenerator{
		err:     &BackendError{Sentinel: ErrTimeout, Endpoint: "http://ollama"},
		timeout: 600 * time.Second,
	}
	a := NewAnalyzer(gen)

	res, err := a.Analyze(context.Background(), sampleReport)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, Fallback(sampleReport), res.Narrative)
	assert.Equal(t,
		"AI analysis timed out (waited 600s), basic inspection report follows:\n"+Fallback(sampleReport),
		res.Text())
}

func TestAnalyzer_ErrorsPropagate(t *testing.T) {
	for _, sentinel := range []error{ErrUnavailable, ErrEmptyResponse, ErrEmptyReport, errors.New("other")} {
		gen := &stubGenerator{err: &BackendError{Sentinel: sentinel, Endpoint: "http://ollama"}}
		_, err := NewAnalyzer(gen).Analyze(context.Background(), "data")
		assert.ErrorIs(t, err, sentinel)
	}
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "success", outcomeOf(nil))
	assert.Equal(t, "timeout", outcomeOf(ErrTimeout))
	assert.Equal(t, "unavailable", outcomeOf(&BackendError{Sentinel: ErrUnavailable}))
	assert.Equal(t, "empty", outcomeOf(ErrEmptyResponse))
	assert.Equal(t, "empty", outcomeOf(ErrEmptyReport))
	assert.Equal(t, "error", outcomeOf(context.Canceled))
}
