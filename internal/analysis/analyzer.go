// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/metrics"
	"github.com/ManuGH/netinspect/internal/telemetry"
)

// Generator turns a report body into a narrative.
type Generator interface {
	Generate(ctx context.Context, report string) (string, error)
	Model() string
	Timeout() time.Duration
}

// Result is the outcome of one analysis.
type Result struct {
	Narrative string
	Degraded  bool
	Elapsed   time.Duration
	Waited    time.Duration
}

// Text renders the result for operators. Degraded results carry the rule-based
// summary under a timeout notice; model answers carry their response time.
func (r Result) Text() string {
	if r.Degraded {
		return fmt.Sprintf("AI analysis timed out (waited %ds), basic inspection report follows:\n%s",
			int(r.Waited.Seconds()), r.Narrative)
	}
	return fmt.Sprintf("%s\n\n(AI analysis took %ds)", r.Narrative, int(r.Elapsed.Seconds()))
}

// Analyzer asks the model for a narrative and degrades to Fallback on timeout.
type Analyzer struct {
	gen Generator
	now func() time.Time
}

// NewAnalyzer wraps gen.
func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{gen: gen, now: time.Now}
}

// Analyze returns the narrative for report. ErrTimeout is absorbed into a
// degraded Result; every other failure is returned.
func (a *Analyzer) Analyze(ctx context.Context, report string) (Result, error) {
	logger := xglog.WithComponentFromContext(ctx, "analysis")
	ctx, span := telemetry.Tracer("analysis").Start(ctx, "analysis.generate",
		trace.WithAttributes(telemetry.AnalysisAttributes(a.gen.Model(), len([]rune(report)))...))
	defer span.End()

	start := a.now()
	text, err := a.gen.Generate(ctx, report)
	elapsed := a.now().Sub(start)

	outcome := outcomeOf(err)
	metrics.RecordAnalysis(outcome, elapsed)

	switch {
	case err == nil:
		logger.Info().
			Str(xglog.FieldEvent, "analysis.done").
			Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).
			Msg("analysis finished")
		return Result{Narrative: text, Elapsed: elapsed}, nil

	case errors.Is(err, ErrTimeout):
		span.SetAttributes(attribute.Bool(telemetry.AnalysisDegradedKey, true))
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "analysis.timeout").
			Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).
			Msg("analysis timed out, using rule-based summary")
		return Result{
			Narrative: Fallback(report),
			Degraded:  true,
			Elapsed:   elapsed,
			Waited:    a.gen.Timeout(),
		}, nil

	default:
		telemetry.RecordError(span, err)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "analysis.failed").
			Str("outcome", outcome).
			Msg("analysis failed")
		return Result{}, err
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrEmptyReport), errors.Is(err, ErrEmptyResponse):
		return "empty"
	default:
		return "error"
	}
}
