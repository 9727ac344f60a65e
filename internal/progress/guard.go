// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"sync"
	"time"
)

// RunState is a point-in-time view of the single-flight guard.
type RunState struct {
	Active    bool        `json:"active"`
	RunID     string      `json:"run_id,omitempty"`
	StartedAt time.Time   `json:"started_at,omitzero"`
	Last      *RunSummary `json:"last,omitempty"`
}

// RunSummary describes the most recently finished run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunGuard admits at most one active run at a time.
type RunGuard struct {
	mu    sync.Mutex
	now   func() time.Time
	state RunState
}

// NewRunGuard returns an idle guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{now: time.Now}
}

// TryAcquire marks a run active. It returns false, with the current state,
// when another run already holds the guard.
func (g *RunGuard) TryAcquire(runID string) (RunState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Active {
		return g.snapshotLocked(), false
	}
	g.state.Active = true
	g.state.RunID = runID
	g.state.StartedAt = g.now()
	return g.snapshotLocked(), true
}

// Release clears the active flag and records the run outcome.
// Releasing an idle guard is a no-op.
func (g *RunGuard) Release(outcome string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.Active {
		return
	}
	g.state.Last = &RunSummary{
		RunID:      g.state.RunID,
		Outcome:    outcome,
		StartedAt:  g.state.StartedAt,
		FinishedAt: g.now(),
	}
	g.state.Active = false
	g.state.RunID = ""
	g.state.StartedAt = time.Time{}
}

// Snapshot reports the current state without modifying it.
func (g *RunGuard) Snapshot() RunState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *RunGuard) snapshotLocked() RunState {
	s := g.state
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	return s
}
