// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/progress"
)

const wsWriteWait = 10 * time.Second

// handleWebSocket relays the same JSON events as /stream over a WebSocket.
// Client messages are read and discarded so close frames are noticed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "ws")

	sub := s.bus.Subscribe()
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug().Err(err).Str(xglog.FieldEvent, "ws.upgrade_failed").Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Str(xglog.FieldEvent, "ws.connected").Msg("progress websocket connected")
	s.relayWebSocket(ctx, conn, sub)

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()
	<-readerDone
	logger.Info().Str(xglog.FieldEvent, "ws.disconnected").Msg("progress websocket closed")
}

func (s *Server) relayWebSocket(ctx context.Context, conn *websocket.Conn, sub *progress.Subscription) {
	if err := writeWS(conn, connectedEvent); err != nil {
		return
	}
	for {
		ev, err := s.nextOrHeartbeat(ctx, sub)
		if err != nil {
			return
		}
		if ev == nil {
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			continue
		}
		if err := writeWS(conn, *ev); err != nil {
			return
		}
	}
}

func writeWS(conn *websocket.Conn, ev progress.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}
