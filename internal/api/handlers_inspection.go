// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/netinspect/internal/inspection"
	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/progress"
)

// conflictRetryAfter is the Retry-After hint, in seconds, on 409 responses.
const conflictRetryAfter = "30"

type startResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	RunID  string `json:"run_id"`
}

type statusResponse struct {
	Version     string            `json:"version,omitempty"`
	Run         progress.RunState `json:"run"`
	Subscribers int               `json:"subscribers"`
}

func (s *Server) handleStartInspection(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "api")

	state, err := s.inspector.Trigger(r.Context())
	switch {
	case errors.Is(err, inspection.ErrRunConflict):
		logger.Warn().
			Str(xglog.FieldEvent, "inspection.conflict").
			Str(xglog.FieldRunID, state.RunID).
			Msg("inspection already in progress")
		w.Header().Set("Retry-After", conflictRetryAfter)
		writeJSON(w, r, http.StatusConflict, errorResponse{
			Status:  "error",
			Message: "an inspection is already running, please wait for it to finish",
			RunID:   state.RunID,
		})
		return

	case errors.Is(err, inspection.ErrStopped):
		writeError(w, r, http.StatusServiceUnavailable, "inspection worker is shutting down")
		return

	case err != nil:
		logger.Error().Err(err).Str(xglog.FieldEvent, "inspection.trigger_failed").Msg("failed to start inspection")
		writeError(w, r, http.StatusInternalServerError, "failed to start inspection")
		return
	}

	logger.Info().
		Str(xglog.FieldEvent, "inspection.triggered").
		Str(xglog.FieldRunID, state.RunID).
		Str("remote_addr", r.RemoteAddr).
		Msg("inspection triggered")
	writeJSON(w, r, http.StatusAccepted, startResponse{
		Status: "success",
		Msg:    "inspection started, progress will update live",
		RunID:  state.RunID,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, statusResponse{
		Version:     s.cfg.Version,
		Run:         s.inspector.State(),
		Subscribers: s.bus.Subscribers(),
	})
}
