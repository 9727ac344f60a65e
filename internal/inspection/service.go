// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package inspection runs device health inspections one at a time and
// reports each phase on the progress bus.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/netinspect/internal/analysis"
	"github.com/ManuGH/netinspect/internal/collector"
	"github.com/ManuGH/netinspect/internal/config"
	"github.com/ManuGH/netinspect/internal/device"
	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/metrics"
	"github.com/ManuGH/netinspect/internal/progress"
)

var (
	// ErrRunConflict is returned by Trigger while another run is active.
	ErrRunConflict = errors.New("an inspection is already running")
	// ErrStopped is returned by Trigger once the worker has exited.
	ErrStopped = errors.New("inspection worker stopped")
)

// Run outcomes recorded on the guard and in metrics.
const (
	OutcomeDone     = "done"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
)

// ConfigSource yields the configuration in effect for the next run.
type ConfigSource interface {
	Get() config.AppConfig
}

// Connector opens an interactive session to the device.
type Connector interface {
	Open(ctx context.Context, t device.Target, pub progress.Publisher) (*device.Session, error)
}

// Analyzer turns a report body into a narrative.
type Analyzer interface {
	Analyze(ctx context.Context, report string) (analysis.Result, error)
}

// AnalyzerFactory builds the analyzer for one run from the current settings.
type AnalyzerFactory func(cfg config.AnalysisConfig) (Analyzer, error)

// Deps are the collaborators of a Service.
type Deps struct {
	Config    ConfigSource
	Devices   Connector
	Analyzers AnalyzerFactory
	Bus       *progress.Bus
	Guard     *progress.RunGuard
}

// Validate reports the first missing dependency.
func (d Deps) Validate() error {
	switch {
	case d.Config == nil:
		return errors.New("inspection: config source is required")
	case d.Devices == nil:
		return errors.New("inspection: device connector is required")
	case d.Analyzers == nil:
		return errors.New("inspection: analyzer factory is required")
	case d.Bus == nil:
		return errors.New("inspection: progress bus is required")
	}
	return nil
}

// Report is the result of a completed run.
type Report struct {
	RunID    string
	Body     string
	Analysis analysis.Result
	Message  string
}

type job struct {
	id string
}

// Service owns the single-flight guard and the worker that executes runs.
type Service struct {
	cfg       ConfigSource
	devices   Connector
	analyzers AnalyzerFactory
	bus       *progress.Bus
	guard     *progress.RunGuard
	newID     func() string

	mu        sync.Mutex
	stopped   bool
	jobs      chan job
	startOnce sync.Once
	done      chan struct{}
}

// New returns a Service. Start must be called before triggered runs execute.
func New(d Deps) (*Service, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	guard := d.Guard
	if guard == nil {
		guard = progress.NewRunGuard()
	}
	return &Service{
		cfg:       d.Config,
		devices:   d.Devices,
		analyzers: d.Analyzers,
		bus:       d.Bus,
		guard:     guard,
		newID:     uuid.NewString,
		jobs:      make(chan job, 1),
		done:      make(chan struct{}),
	}, nil
}

// Guard exposes the run guard for status reporting.
func (s *Service) Guard() *progress.RunGuard { return s.guard }

// State reports whether a run is active and how the last one ended.
func (s *Service) State() progress.RunState { return s.guard.Snapshot() }

// Start launches the worker. It returns immediately; the worker exits when
// ctx is canceled. Calling Start more than once has no effect.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.loop(ctx)
	})
}

// Done is closed after the worker has exited.
func (s *Service) Done() <-chan struct{} { return s.done }

// Trigger schedules a run and returns without waiting for it. While a run is
// active it returns ErrRunConflict and publishes nothing.
func (s *Service) Trigger(ctx context.Context) (progress.RunState, error) {
	logger := xglog.WithComponentFromContext(ctx, "inspection")

	// The stop check and the enqueue are atomic with respect to stop.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.guard.Snapshot(), ErrStopped
	}

	id := s.newID()
	state, ok := s.guard.TryAcquire(id)
	if !ok {
		metrics.IncRunRejected()
		logger.Warn().
			Str(xglog.FieldEvent, "run.conflict").
			Str(xglog.FieldRunID, state.RunID).
			Msg("inspection already running")
		return state, ErrRunConflict
	}
	metrics.SetRunActive(true)

	// The guard admits one run, so the buffered slot is always free here.
	s.jobs <- job{id: id}

	logger.Info().
		Str(xglog.FieldEvent, "run.accepted").
		Str(xglog.FieldRunID, id).
		Msg("inspection accepted")
	return state, nil
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.stop(ctx.Err())
			return
		case j := <-s.jobs:
			s.execute(ctx, j)
		}
	}
}

// stop refuses further triggers and fails a job that was accepted but not started.
func (s *Service) stop(cause error) {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	select {
	case j := <-s.jobs:
		s.abandon(j, cause)
	default:
	}
}

// abandon finishes a run that was accepted but never started.
func (s *Service) abandon(j job, cause error) {
	s.guard.Release(OutcomeError)
	metrics.SetRunActive(false)
	metrics.RecordRun(OutcomeError, 0)
	progress.WithRunID(s.bus, j.id).Publish(progress.Event{
		Status:  progress.StatusError,
		Message: fmt.Sprintf("Inspection failed: %v", cause),
	})
}

func (s *Service) execute(ctx context.Context, j job) {
	ctx = xglog.ContextWithRunID(ctx, j.id)
	pub := progress.WithRunID(s.bus, j.id)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.finish(ctx, pub, Report{RunID: j.id}, fmt.Errorf("internal error: %v", r), time.Since(start))
		}
	}()

	rep, err := s.inspect(ctx, s.cfg.Get(), pub)
	rep.RunID = j.id
	s.finish(ctx, pub, rep, err, time.Since(start))
}

// RunOnce executes a run synchronously in the caller's goroutine. Progress
// is published on the bus like a triggered run.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	id := s.newID()
	if _, ok := s.guard.TryAcquire(id); !ok {
		metrics.IncRunRejected()
		return Report{}, ErrRunConflict
	}
	metrics.SetRunActive(true)

	ctx = xglog.ContextWithRunID(ctx, id)
	pub := progress.WithRunID(s.bus, id)
	start := time.Now()

	rep, err := s.inspect(ctx, s.cfg.Get(), pub)
	rep.RunID = id
	s.finish(ctx, pub, rep, err, time.Since(start))
	return rep, err
}

// finish releases the guard before publishing the terminal event, so an
// observer that saw it can trigger the next run at once.
func (s *Service) finish(ctx context.Context, pub progress.Publisher, rep Report, err error, elapsed time.Duration) {
	logger := xglog.WithComponentFromContext(ctx, "inspection")

	outcome := OutcomeDone
	switch {
	case err != nil:
		outcome = OutcomeError
	case rep.Analysis.Degraded:
		outcome = OutcomeDegraded
	}

	s.guard.Release(outcome)
	metrics.SetRunActive(false)
	metrics.RecordRun(outcome, elapsed)

	if err != nil {
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "run.failed").
			Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).
			Msg("inspection failed")
		pub.Publish(progress.Event{Status: progress.StatusError, Message: fmt.Sprintf("Inspection failed: %v", err)})
		return
	}

	logger.Info().
		Str(xglog.FieldEvent, "run.done").
		Str("outcome", outcome).
		Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).
		Msg("inspection finished")
	pub.Publish(progress.Event{Status: progress.StatusDone, Message: rep.Message})
}

func (s *Service) inspect(ctx context.Context, cfg config.AppConfig, pub progress.Publisher) (Report, error) {
	logger := xglog.WithComponentFromContext(ctx, "inspection")
	logger.Info().
		Str(xglog.FieldEvent, "run.start").
		Str(xglog.FieldHost, cfg.Device.Host).
		Int(xglog.FieldTotal, len(cfg.Collector.Commands)).
		Msg("inspection started")
	progress.Emit(pub, progress.StatusStart, "Inspection started, initializing...")

	body, err := s.collect(ctx, cfg, pub)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Body: body}

	progress.Emit(pub, progress.StatusAI, "Data collection finished, running AI analysis...")
	analyzer, err := s.analyzers(cfg.Analysis)
	if err != nil {
		return rep, fmt.Errorf("prepare analysis: %w", err)
	}
	res, err := analyzer.Analyze(ctx, body)
	if err != nil {
		return rep, err
	}
	rep.Analysis = res
	rep.Message = "Inspection complete!\n\nAI inspection report:\n" + res.Text()
	return rep, nil
}

// collect opens the session, runs the command battery and closes the session
// before analysis starts.
func (s *Service) collect(ctx context.Context, cfg config.AppConfig, pub progress.Publisher) (string, error) {
	sess, err := s.devices.Open(ctx, device.TargetFromConfig(cfg.Device), pub)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	runner := collector.NewRunner(collector.PolicyFromConfig(cfg.Collector))
	tasks, err := runner.Run(ctx, sess, cfg.Collector.Commands, pub)
	if err != nil {
		return "", err
	}
	return collector.BuildReport(tasks), nil
}
