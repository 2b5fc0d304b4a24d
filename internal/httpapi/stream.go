package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	streamReadDeadline  = 120 * time.Second
	streamWriteDeadline = 10 * time.Second
)

type streamRequest struct {
	Text     string   `json:"text"`
	ChildAge int      `json:"child_age"`
	History  []string `json:"history,omitempty"`
}

type streamError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// handleStream analyzes utterances over one websocket, keeping session
// memory across messages. Each text message carries one analyzeRequest
// and gets one verdict back.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ActiveStreams.Inc()
		defer s.metrics.ActiveStreams.Dec()
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(streamReadDeadline))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadDeadline))
		return nil
	})

	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteDeadline))
				_ = conn.WriteJSON(streamError{Error: err.Error(), Code: "invalid_client_message"})
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamReadDeadline))

		history := req.History
		if history == nil {
			// Remembered turns are read before analysis; the context layer
			// appends the current utterance itself.
			history = s.registry.Recent(sessionID)
		}
		verdict := s.engine.Analyze(r.Context(), req.Text, req.ChildAge, history, sessionID)

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteDeadline))
		if err := conn.WriteJSON(verdict); err != nil {
			return
		}
	}
}
