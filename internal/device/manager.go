// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package device opens interactive shell sessions on network devices.
package device

import (
	"context"
	"errors"
	"time"

	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/metrics"
	"github.com/ManuGH/netinspect/internal/progress"
	"github.com/ManuGH/netinspect/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Manager opens sessions with bounded retries.
type Manager struct {
	dialer Dialer
	policy Policy
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithSleep replaces the backoff/settle sleeper (tests).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = fn }
}

// NewManager creates a Manager. Zero policy fields fall back to DefaultPolicy.
func NewManager(dialer Dialer, policy Policy, opts ...Option) *Manager {
	def := DefaultPolicy()
	if policy.ConnectAttempts <= 0 {
		policy.ConnectAttempts = def.ConnectAttempts
	}
	if policy.RetryBackoff < 0 {
		policy.RetryBackoff = 0
	}
	if policy.SettleDelay < 0 {
		policy.SettleDelay = 0
	}
	m := &Manager{dialer: dialer, policy: policy, sleep: sleepCtx}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open connects to t, allocates an interactive shell and discards the login banner.
// Every attempt is reported on pub. After the last failed attempt a *ConnectError
// is returned; a shell failure yields a *ShellError.
func (m *Manager) Open(ctx context.Context, t Target, pub progress.Publisher) (*Session, error) {
	if pub == nil {
		pub = progress.Discard
	}
	addr := t.Endpoint.Addr()
	logger := xglog.WithContext(ctx, xglog.WithComponent("device")).With().
		Str(xglog.FieldHost, t.Endpoint.Host).
		Int(xglog.FieldPort, t.Endpoint.Port).
		Logger()

	ctx, span := telemetry.Tracer("device").Start(ctx, "device.open")
	defer span.End()
	span.SetAttributes(telemetry.DeviceAttributes(t.Endpoint.Host, t.Endpoint.Port, t.Credentials.Username)...)

	dec, err := NewDecoder(t.Charset)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sess := newSession(t, dec, logger)
	sess.setState(StateConnecting)

	var (
		conn    Conn
		lastErr error
		n       = m.policy.ConnectAttempts
	)
	for attempt := 1; attempt <= n; attempt++ {
		progress.Emit(pub, progress.StatusCollect, "connecting to %s (attempt %d/%d)", addr, attempt, n)
		span.SetAttributes(attribute.Int(telemetry.DeviceAttemptKey, attempt))

		conn, lastErr = m.dial(ctx, t)
		metrics.IncConnectAttempt(lastErr == nil)
		if lastErr == nil {
			break
		}

		logger.Warn().Err(lastErr).
			Str(xglog.FieldEvent, "device.connect_failed").
			Int(xglog.FieldAttempt, attempt).
			Int(xglog.FieldTotal, n).
			Msg("connection attempt failed")
		progress.Emit(pub, progress.StatusCollect, "connection attempt %d/%d failed: %v", attempt, n, lastErr)

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			n = attempt
			break
		}
		if attempt < n {
			if err := m.sleep(ctx, m.policy.RetryBackoff); err != nil {
				lastErr = err
				n = attempt
				break
			}
		}
	}
	if conn == nil {
		sess.setState(StateFailed)
		err := &ConnectError{Addr: addr, Attempts: n, Err: lastErr}
		telemetry.RecordError(span, err)
		return nil, err
	}

	sess.setState(StateConnected)
	logger.Info().
		Str(xglog.FieldEvent, "device.connected").
		Str(xglog.FieldUser, t.Credentials.Username).
		Msg("connected to device")
	progress.Emit(pub, progress.StatusCollect, "connected to %s as %s", addr, t.Credentials.Username)

	shell, err := conn.OpenShell(ctx)
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			logger.Warn().Err(cerr).Str(xglog.FieldEvent, "device.conn_close_failed").Msg("failed to close connection")
		}
		sess.setState(StateFailed)
		serr := &ShellError{Addr: addr, Err: err}
		telemetry.RecordError(span, serr)
		return nil, serr
	}
	sess.attach(conn, shell)

	if err := m.sleep(ctx, m.policy.SettleDelay); err != nil {
		sess.Close()
		serr := &ShellError{Addr: addr, Err: err}
		telemetry.RecordError(span, serr)
		return nil, serr
	}

	banner, err := shell.Drain()
	if err != nil {
		sess.Close()
		serr := &ShellError{Addr: addr, Err: err}
		telemetry.RecordError(span, serr)
		return nil, serr
	}
	sess.setState(StateShellReady)

	logger.Debug().
		Str(xglog.FieldEvent, "device.banner_discarded").
		Int(xglog.FieldBytes, len(banner)).
		Msg("login banner discarded")
	progress.Emit(pub, progress.StatusCollect, "interactive shell ready")
	return sess, nil
}

func (m *Manager) dial(ctx context.Context, t Target) (Conn, error) {
	dialCtx := ctx
	if t.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t.ConnectTimeout)
		defer cancel()
	}
	conn, err := m.dialer.Dial(dialCtx, t)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, errors.New("dialer returned no connection")
	}
	return conn, nil
}
