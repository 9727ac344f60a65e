// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the inspection dashboard, the trigger endpoint and the
// live progress streams.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ManuGH/netinspect/internal/health"
	"github.com/ManuGH/netinspect/internal/progress"
)

// DefaultHeartbeat is the keep-alive interval on idle streams.
const DefaultHeartbeat = 15 * time.Second

// Inspector starts runs and reports the run state.
type Inspector interface {
	Trigger(ctx context.Context) (progress.RunState, error)
	State() progress.RunState
}

// Config holds the HTTP surface settings.
type Config struct {
	Version          string
	TriggerRateLimit int           // triggers per minute per client IP; 0 disables
	Heartbeat        time.Duration // idle stream keep-alive interval
	TracingService   string        // empty disables request tracing
}

// Deps are the collaborators of a Server.
type Deps struct {
	Inspector Inspector
	Bus       *progress.Bus
	Health    *health.Manager
	Config    Config
}

// Server is the HTTP front-end.
type Server struct {
	inspector Inspector
	bus       *progress.Bus
	health    *health.Manager
	cfg       Config
	upgrader  websocket.Upgrader
	router    chi.Router
}

// New validates d and builds the router.
func New(d Deps) (*Server, error) {
	switch {
	case d.Inspector == nil:
		return nil, errors.New("api: inspector is required")
	case d.Bus == nil:
		return nil, errors.New("api: progress bus is required")
	}
	if d.Health == nil {
		d.Health = health.NewManager(d.Config.Version)
	}
	if d.Config.Heartbeat <= 0 {
		d.Config.Heartbeat = DefaultHeartbeat
	}

	s := &Server{
		inspector: d.Inspector,
		bus:       d.Bus,
		health:    d.Health,
		cfg:       d.Config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// HealthManager exposes the health manager so callers can register checks.
func (s *Server) HealthManager() *health.Manager { return s.health }
