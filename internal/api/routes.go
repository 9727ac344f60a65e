// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/netinspect/internal/api/middleware"
)

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	// One limiter shared by both trigger routes.
	limit := middleware.TriggerRateLimit(s.cfg.TriggerRateLimit)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.With(limit).Post("/start_inspection", s.handleStartInspection)
	r.Get("/stream", s.handleStream)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.With(limit).Post("/inspections", s.handleStartInspection)
	})
	return r
}
