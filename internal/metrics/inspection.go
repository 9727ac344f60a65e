// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netinspect_runs_total",
		Help: "Inspection runs by terminal outcome",
	}, []string{"outcome"}) // outcome=done|degraded|error

	runsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netinspect_runs_rejected_total",
		Help: "Inspection triggers rejected because a run was already active",
	})

	runActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netinspect_run_active",
		Help: "Whether an inspection run is currently active (1) or not (0)",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netinspect_run_duration_seconds",
		Help:    "Wall-clock duration of inspection runs",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900},
	})

	connectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netinspect_device_connect_attempts_total",
		Help: "Device connection attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netinspect_commands_total",
		Help: "Executed diagnostic commands by outcome",
	}, []string{"outcome"}) // outcome=success|timeout|error

	commandDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netinspect_command_duration_seconds",
		Help:    "Time spent harvesting one command's output",
		Buckets: []float64{0.5, 1, 2, 3, 5, 10, 20, 30, 60},
	})

	pagerContinuesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netinspect_pager_continues_total",
		Help: "Continue keystrokes sent in response to pagination markers",
	})

	analysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netinspect_analysis_total",
		Help: "Analysis backend calls by outcome",
	}, []string{"outcome"}) // outcome=success|timeout|unavailable|empty|error

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netinspect_analysis_duration_seconds",
		Help:    "Duration of analysis backend calls",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)

// RecordRun records a finished inspection run.
func RecordRun(outcome string, d time.Duration) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(d.Seconds())
}

// IncRunRejected records a trigger rejected by the single-flight guard.
func IncRunRejected() {
	runsRejectedTotal.Inc()
}

// SetRunActive records whether a run is active.
func SetRunActive(active bool) {
	if active {
		runActive.Set(1)
		return
	}
	runActive.Set(0)
}

// IncConnectAttempt records one device connection attempt.
func IncConnectAttempt(success bool) {
	if success {
		connectAttemptsTotal.WithLabelValues("success").Inc()
		return
	}
	connectAttemptsTotal.WithLabelValues("failure").Inc()
}

// RecordCommand records one executed command.
func RecordCommand(outcome string, d time.Duration) {
	commandsTotal.WithLabelValues(outcome).Inc()
	commandDuration.Observe(d.Seconds())
}

// IncPagerContinue records a continue keystroke.
func IncPagerContinue() {
	pagerContinuesTotal.Inc()
}

// RecordAnalysis records one analysis call.
func RecordAnalysis(outcome string, d time.Duration) {
	analysisTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(d.Seconds())
}
