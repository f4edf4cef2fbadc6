package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"disclosure-api/internal/disclosure"
	"disclosure-api/internal/middleware"
)

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const streamWriteWait = 5 * time.Second

// handleStream pushes the context snapshot over a websocket, once on connect
// and again whenever it changes. Client messages are ignored; the stream
// ends when the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	contextID := r.PathValue("context")
	last, err := s.engine.Snapshot(contextID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	logger := middleware.LogWithTrace(r.Context()).With("context", contextID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(snap disclosure.Snapshot) bool {
		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(snap); err != nil {
			logger.Debug("stream write failed", "error", err)
			return false
		}
		return true
	}
	if !send(last) {
		return
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			snap, err := s.engine.Snapshot(contextID)
			if err != nil || snap == last {
				continue
			}
			if !send(snap) {
				return
			}
			last = snap
		}
	}
}
