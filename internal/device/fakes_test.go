// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/netinspect/internal/progress"
)

type fakeShell struct {
	mu       sync.Mutex
	pending  []byte
	written  []string
	closed   int
	closeErr error
}

func (s *fakeShell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, string(p))
	return len(p), nil
}

func (s *fakeShell) Drain() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out, nil
}

func (s *fakeShell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

type fakeConn struct {
	shell    *fakeShell
	shellErr error
	closed   int
	closeErr error
}

func (c *fakeConn) OpenShell(context.Context) (Shell, error) {
	if c.shellErr != nil {
		return nil, c.shellErr
	}
	return c.shell, nil
}

func (c *fakeConn) Close() error {
	c.closed++
	return c.closeErr
}

// fakeDialer fails the first failures dials, then returns conn.
type fakeDialer struct {
	failures int
	err      error
	conn     *fakeConn
	calls    int
}

func (d *fakeDialer) Dial(ctx context.Context, _ Target) (Conn, error) {
	d.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.calls <= d.failures {
		if d.err != nil {
			return nil, d.err
		}
		return nil, errors.New("connection refused")
	}
	return d.conn, nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
	hook   func(n int) error
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	n := len(r.sleeps)
	r.mu.Unlock()
	if r.hook != nil {
		if err := r.hook(n); err != nil {
			return err
		}
	}
	return ctx.Err()
}

type eventLog struct {
	mu     sync.Mutex
	events []progress.Event
}

func (l *eventLog) Publish(ev progress.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Message
	}
	return out
}

func testTarget() Target {
	return Target{
		Endpoint:       Endpoint{Host: "192.0.2.10", Port: 22},
		Credentials:    Credentials{Username: "python", Password: "secret"},
		ConnectTimeout: time.Second,
	}
}
