// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"fmt"
	"sync"

	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/rs/zerolog"
)

// State is the session lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateShellReady
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShellReady:
		return "shell_ready"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one interactive shell on a device. It is owned by a single
// goroutine; only State and Close are safe for concurrent use.
type Session struct {
	target  Target
	decoder *Decoder
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
	conn  Conn
	shell Shell

	closeOnce sync.Once
}

func newSession(t Target, dec *Decoder, logger zerolog.Logger) *Session {
	return &Session{
		target:  t,
		decoder: dec,
		logger:  logger,
		state:   StateDisconnected,
	}
}

// Target returns the endpoint and credentials the session was opened with.
func (s *Session) Target() Target { return s.target }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.logger.Debug().
			Str(xglog.FieldEvent, "device.state").
			Str(xglog.FieldOldState, prev.String()).
			Str(xglog.FieldNewState, next.String()).
			Msg("session state changed")
	}
}

func (s *Session) attach(conn Conn, shell Shell) {
	s.mu.Lock()
	s.conn = conn
	s.shell = shell
	s.mu.Unlock()
}

func (s *Session) currentShell() (Shell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed || s.shell == nil {
		return nil, ErrClosed
	}
	return s.shell, nil
}

// Send writes text to the shell.
func (s *Session) Send(text string) error {
	sh, err := s.currentShell()
	if err != nil {
		return err
	}
	_, err = sh.Write([]byte(text))
	return err
}

// Drain returns output buffered since the previous call without blocking.
func (s *Session) Drain() ([]byte, error) {
	sh, err := s.currentShell()
	if err != nil {
		return nil, err
	}
	return sh.Drain()
}

// Decode converts raw output to UTF-8 using the device charset.
func (s *Session) Decode(b []byte) string {
	return s.decoder.Decode(b)
}

// Close releases the shell and then the connection. Each step is attempted
// even if the other fails; failures are logged, never returned. Close is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		shell, conn := s.shell, s.conn
		s.shell, s.conn = nil, nil
		s.mu.Unlock()

		if shell != nil {
			if err := shell.Close(); err != nil {
				s.logger.Warn().Err(err).
					Str(xglog.FieldEvent, "device.shell_close_failed").
					Msg("failed to close shell")
			}
		}
		if conn != nil {
			if err := conn.Close(); err != nil {
				s.logger.Warn().Err(err).
					Str(xglog.FieldEvent, "device.conn_close_failed").
					Msg("failed to close connection")
			}
		}
		s.setState(StateClosed)
		s.logger.Info().Str(xglog.FieldEvent, "device.closed").Msg("device session closed")
	})
}
