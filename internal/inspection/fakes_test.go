// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package inspection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/netinspect/internal/analysis"
	"github.com/ManuGH/netinspect/internal/config"
	"github.com/ManuGH/netinspect/internal/device"
	"github.com/ManuGH/netinspect/internal/progress"
)

var deviceOutputs = map[string]string{
	"display version":   "VRP (R) software, Version 5.170 (AR2200 V200R009C00SPC500)",
	"display cpu-usage": "CPU utilization : 12% Max: 40%",
}

// vrpShell echoes each command followed by its canned output and a prompt.
type vrpShell struct {
	mu      sync.Mutex
	pending []byte
	closed  bool
}

func (s *vrpShell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("shell closed")
	}
	cmd := strings.TrimSuffix(string(p), "\n")
	if body, ok := deviceOutputs[cmd]; ok {
		s.pending = append(s.pending, cmd+"\r\n"+body+"\r\n<HUAWEI>"...)
	}
	return len(p), nil
}

func (s *vrpShell) Drain() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out, nil
}

func (s *vrpShell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *vrpShell) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type vrpConn struct{ shell *vrpShell }

func (c *vrpConn) OpenShell(context.Context) (device.Shell, error) { return c.shell, nil }
func (c *vrpConn) Close() error                                     { return nil }

// vrpDialer hands out a fresh shell per dial, or fails when err is set.
type vrpDialer struct {
	mu     sync.Mutex
	err    error
	shells []*vrpShell
}

func (d *vrpDialer) Dial(ctx context.Context, _ device.Target) (device.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	sh := &vrpShell{}
	d.shells = append(d.shells, sh)
	return &vrpConn{shell: sh}, nil
}

func (d *vrpDialer) lastShell() *vrpShell {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.shells) == 0 {
		return nil
	}
	return d.shells[len(d.shells)-1]
}

type staticConfig struct{ cfg config.AppConfig }

func (s staticConfig) Get() config.AppConfig { return s.cfg }

func fastConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Device.ConnectAttempts = 2
	cfg.Device.RetryBackoff = time.Millisecond
	cfg.Device.SettleDelay = 0
	cfg.Collector.Commands = []string{"display version", "display cpu-usage"}
	cfg.Collector.PollInterval = 2 * time.Millisecond
	cfg.Collector.IdleTimeout = 30 * time.Millisecond
	cfg.Collector.CommandTimeout = time.Second
	cfg.Collector.ResponseDelay = 0
	cfg.Collector.CommandGap = 0
	return cfg
}

// funcAnalyzer adapts a function to Analyzer.
type funcAnalyzer func(ctx context.Context, report string) (analysis.Result, error)

func (f funcAnalyzer) Analyze(ctx context.Context, report string) (analysis.Result, error) {
	return f(ctx, report)
}

func analyzers(a Analyzer) AnalyzerFactory {
	return func(config.AnalysisConfig) (Analyzer, error) { return a, nil }
}

type harness struct {
	svc    *Service
	bus    *progress.Bus
	dialer *vrpDialer
	cancel context.CancelFunc
}

func newHarness(t *testing.T, a Analyzer) *harness {
	t.Helper()
	cfg := fastConfig()
	dialer := &vrpDialer{}
	bus := progress.NewBus(progress.DefaultCapacity)

	svc, err := New(Deps{
		Config:    staticConfig{cfg: cfg},
		Devices:   device.NewManager(dialer, device.PolicyFromConfig(cfg.Device)),
		Analyzers: analyzers(a),
		Bus:       bus,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	h := &harness{svc: svc, bus: bus, dialer: dialer, cancel: cancel}
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.svc.Done()
	h.bus.Close()
}

// untilTerminal collects events up to and including the next terminal event.
func untilTerminal(t *testing.T, sub *progress.Subscription) []progress.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []progress.Event
	for {
		ev, err := sub.Next(ctx)
		require.NoError(t, err, "no terminal event after %d events", len(events))
		events = append(events, ev)
		if ev.Status.Terminal() {
			return events
		}
	}
}

func statuses(events []progress.Event) []progress.Status {
	out := make([]progress.Status, 0, len(events))
	for _, ev := range events {
		if len(out) == 0 || out[len(out)-1] != ev.Status {
			out = append(out, ev.Status)
		}
	}
	return out
}
