// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package progress carries inspection progress events from the worker to
// any number of live observers and guards single-flight execution.
package progress

import "fmt"

// Status tags the lifecycle phase an event belongs to.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusStart   Status = "start"
	StatusCollect Status = "collect"
	StatusAI      Status = "ai"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Event is one progress notification. Seq is assigned by the Bus on publish
// and increases monotonically in emission order.
type Event struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Seq     uint64 `json:"seq,omitempty"`
}

// Publisher accepts progress events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

// Publish calls f(ev).
func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Discard is a Publisher that drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})

// Emit publishes a formatted event on p.
func Emit(p Publisher, status Status, format string, args ...any) {
	if p == nil {
		return
	}
	p.Publish(Event{Status: status, Message: fmt.Sprintf(format, args...)})
}

// WithRunID returns a Publisher that stamps runID on every event.
func WithRunID(p Publisher, runID string) Publisher {
	return PublisherFunc(func(ev Event) {
		if ev.RunID == "" {
			ev.RunID = runID
		}
		p.Publish(ev)
	})
}
