// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/progress"
)

// connectedEvent is the first frame every new observer receives.
var connectedEvent = progress.Event{
	Status:  progress.StatusIdle,
	Message: "live progress connected, click the button to start",
}

// nextOrHeartbeat waits up to the heartbeat interval for the next event.
// A nil event with a nil error means the interval passed without one.
func (s *Server) nextOrHeartbeat(ctx context.Context, sub *progress.Subscription) (*progress.Event, error) {
	hctx, cancel := context.WithTimeout(ctx, s.cfg.Heartbeat)
	defer cancel()
	ev, err := sub.Next(hctx)
	if err == nil {
		return &ev, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, nil
	}
	return nil, err
}

// handleStream relays progress events as Server-Sent Events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := xglog.WithComponentFromContext(ctx, "sse")
	rc := http.NewResponseController(w)

	// Subscribe before the greeting so no event published meanwhile is missed.
	sub := s.bus.Subscribe()
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-store")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger.Info().
		Str(xglog.FieldEvent, "sse.connected").
		Int("subscribers", s.bus.Subscribers()).
		Msg("progress stream connected")
	defer func() {
		logger.Info().
			Str(xglog.FieldEvent, "sse.disconnected").
			Uint64("dropped", sub.Dropped()).
			Msg("progress stream closed")
	}()

	if err := writeSSE(w, rc, connectedEvent); err != nil {
		return
	}

	for {
		ev, err := s.nextOrHeartbeat(ctx, sub)
		if err != nil {
			return
		}
		if ev == nil {
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			continue
		}
		if err := writeSSE(w, rc, *ev); err != nil {
			logger.Debug().Err(err).Str(xglog.FieldEvent, "sse.write_failed").Msg("client went away")
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, rc *http.ResponseController, ev progress.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return rc.Flush()
}
