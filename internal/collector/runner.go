// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package collector runs a command battery over an interactive device shell.
package collector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
	"unicode/utf8"

	"github.com/ManuGH/netinspect/internal/config"
	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/metrics"
	"github.com/ManuGH/netinspect/internal/progress"
	"github.com/ManuGH/netinspect/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// Terminal is the shell surface the runner needs.
type Terminal interface {
	Send(text string) error
	Drain() ([]byte, error)
	Decode(raw []byte) string
}

// Policy controls output harvesting.
type Policy struct {
	PollInterval   time.Duration // delay between reads
	IdleTimeout    time.Duration // quiet period that ends a command
	CommandTimeout time.Duration // hard bound per command
	ResponseDelay  time.Duration // wait after sending before the first read
	CommandGap     time.Duration // pause between commands
	Marker         string        // pagination prompt
	ContinueKey    string        // keystroke answering the prompt
}

// DefaultPolicy returns the timings used against VRP devices.
func DefaultPolicy() Policy {
	return Policy{
		PollInterval:   300 * time.Millisecond,
		IdleTimeout:    2 * time.Second,
		CommandTimeout: 30 * time.Second,
		ResponseDelay:  time.Second,
		CommandGap:     time.Second,
		Marker:         "---- More ----",
		ContinueKey:    " ",
	}
}

// PolicyFromConfig builds a Policy from collector configuration.
func PolicyFromConfig(cfg config.CollectorConfig) Policy {
	p := DefaultPolicy()
	p.PollInterval = cfg.PollInterval
	p.IdleTimeout = cfg.IdleTimeout
	p.CommandTimeout = cfg.CommandTimeout
	p.ResponseDelay = cfg.ResponseDelay
	p.CommandGap = cfg.CommandGap
	if cfg.PagerMarker != "" {
		p.Marker = cfg.PagerMarker
	}
	if cfg.ContinueKey != "" {
		p.ContinueKey = cfg.ContinueKey
	}
	return p
}

// Runner executes commands strictly one after another.
type Runner struct {
	policy Policy
	now    func() time.Time
}

// NewRunner returns a Runner using p.
func NewRunner(p Policy) *Runner {
	return &Runner{policy: p, now: time.Now}
}

// Policy returns the runner's policy.
func (r *Runner) Policy() Policy { return r.policy }

// Run executes commands in order on term and returns one Task per command.
// The first failing command aborts the run; no partial result is returned.
func (r *Runner) Run(ctx context.Context, term Terminal, commands []string, pub progress.Publisher) ([]Task, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}
	if pub == nil {
		pub = progress.Discard
	}
	logger := xglog.WithComponentFromContext(ctx, "collector")
	total := len(commands)
	tasks := make([]Task, 0, total)

	for i, cmd := range commands {
		index := i + 1
		progress.Emit(pub, progress.StatusCollect, "executing command %d/%d: %s", index, total, cmd)
		logger.Info().
			Str(xglog.FieldEvent, "command.start").
			Int(xglog.FieldIndex, index).
			Int(xglog.FieldTotal, total).
			Str(xglog.FieldCommand, cmd).
			Msg("executing command")

		task, err := r.runOne(ctx, term, index, total, cmd, pub)
		metrics.RecordCommand(string(task.Outcome), task.Elapsed)
		if err != nil {
			logger.Error().Err(err).
				Str(xglog.FieldEvent, "command.failed").
				Int(xglog.FieldIndex, index).
				Str(xglog.FieldCommand, cmd).
				Msg("command failed")
			progress.Emit(pub, progress.StatusCollect, "command %d/%d %q failed: %v", index, total, cmd, err)
			return nil, err
		}

		chars := utf8.RuneCountInString(task.Output)
		progress.Emit(pub, progress.StatusCollect, "command %d/%d finished (%d characters)", index, total, chars)
		logger.Info().
			Str(xglog.FieldEvent, "command.done").
			Int(xglog.FieldIndex, index).
			Int(xglog.FieldBytes, len(task.Raw)).
			Int(xglog.FieldPages, task.Pages).
			Int64(xglog.FieldDurationMS, task.Elapsed.Milliseconds()).
			Msg("command finished")
		tasks = append(tasks, task)

		if index < total {
			if err := sleepCtx(ctx, r.policy.CommandGap); err != nil {
				return nil, &CommandError{Kind: ErrCommandExecution, Index: index, Total: total, Command: cmd, Err: err}
			}
		}
	}

	progress.Emit(pub, progress.StatusCollect, "all %d commands finished, about %d characters collected",
		total, utf8.RuneCountInString(BuildReport(tasks)))
	return tasks, nil
}

func (r *Runner) runOne(ctx context.Context, term Terminal, index, total int, cmd string, pub progress.Publisher) (Task, error) {
	p := r.policy
	task := Task{Index: index, Total: total, Command: cmd, Outcome: OutcomeError}

	ctx, span := telemetry.Tracer("collector").Start(ctx, "collector.command")
	defer span.End()
	span.SetAttributes(telemetry.CommandAttributes(cmd, index, total)...)

	start := r.now()
	deadline := start.Add(p.CommandTimeout)
	fail := func(kind, cause error) (Task, error) {
		task.Elapsed = r.now().Sub(start)
		if errors.Is(kind, ErrCommandTimeout) {
			task.Outcome = OutcomeTimeout
		}
		err := &CommandError{Kind: kind, Index: index, Total: total, Command: cmd, Elapsed: task.Elapsed, Err: cause}
		telemetry.RecordError(span, err)
		return task, err
	}

	if err := term.Send(cmd + "\n"); err != nil {
		return fail(ErrCommandExecution, err)
	}
	if err := sleepCtx(ctx, p.ResponseDelay); err != nil {
		return fail(ErrCommandExecution, err)
	}

	marker := []byte(p.Marker)
	limiter := rate.NewLimiter(rate.Every(p.PollInterval), 1)
	var raw []byte
	handled := 0
	lastActivity := r.now()

	for {
		if !r.now().Before(deadline) {
			task.Raw = raw
			return fail(ErrCommandTimeout, nil)
		}
		if err := limiter.Wait(ctx); err != nil {
			return fail(ErrCommandExecution, err)
		}

		chunk, err := term.Drain()
		if len(chunk) > 0 {
			raw = append(raw, chunk...)
			lastActivity = r.now()

			// Count over the whole buffer so a marker split across reads is still seen once.
			if seen := countMarkers(raw, marker); seen > handled {
				for ; handled < seen; handled++ {
					progress.Emit(pub, progress.StatusCollect, "output of %q is long, loading next page", cmd)
					if err := term.Send(p.ContinueKey); err != nil {
						return fail(ErrCommandExecution, err)
					}
					metrics.IncPagerContinue()
					task.Pages++
				}
				lastActivity = r.now()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("shell closed by device")
			}
			task.Raw = raw
			return fail(ErrCommandExecution, err)
		}

		now := r.now()
		if len(chunk) == 0 && now.Sub(lastActivity) >= p.IdleTimeout {
			if !now.Before(deadline) {
				task.Raw = raw
				return fail(ErrCommandTimeout, nil)
			}
			break
		}
	}

	task.Raw = raw
	task.Output = Clean(term.Decode(raw), cmd, p.Marker)
	task.Elapsed = r.now().Sub(start)
	task.Outcome = OutcomeSuccess
	span.SetAttributes(
		attribute.Int(telemetry.CommandBytesKey, len(raw)),
		attribute.Int(telemetry.CommandPagesKey, task.Pages),
	)
	return task, nil
}

func countMarkers(raw, marker []byte) int {
	if len(marker) == 0 {
		return 0
	}
	return bytes.Count(raw, marker)
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
