// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	progressPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netinspect_progress_published_total",
		Help: "Total number of progress events published by status",
	}, []string{"status"})

	progressDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netinspect_progress_dropped_total",
		Help: "Total number of progress events dropped for slow subscribers, by reason",
	}, []string{"reason"})

	progressSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netinspect_progress_subscribers",
		Help: "Number of currently attached progress subscribers",
	})
)

// IncProgressPublished records a published progress event.
func IncProgressPublished(status string) {
	if status == "" {
		status = "unknown"
	}
	progressPublishedTotal.WithLabelValues(status).Inc()
}

// IncProgressDrop records a progress event dropped with a concrete reason.
func IncProgressDrop(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	progressDroppedTotal.WithLabelValues(reason).Inc()
}

// SetProgressSubscribers records the number of attached subscribers.
func SetProgressSubscribers(n int) {
	progressSubscribers.Set(float64(n))
}
