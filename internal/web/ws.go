package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	appLog "eventplanner/internal/log"
)

const wsWriteTimeout = 10 * time.Second

// wsMessage is the envelope pushed to WebSocket clients.
type wsMessage struct {
	Type string `json:"type"` // "events" or "chat"
	Data any    `json:"data"`
}

// handleWS streams the event list and chat log. Each client gets both in
// full on connect and again after every change; a slow client only sees
// the latest state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.Error("websocket upgrade failed", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	events, cancelEvents := s.store.Subscribe()
	defer cancelEvents()
	messages, cancelChat := s.chat.Log().Subscribe()
	defer cancelChat()

	// Reads only detect the peer going away; clients never send anything
	// we act on.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	appLog.Debug("websocket connected", "remote", r.RemoteAddr)
	defer appLog.Debug("websocket disconnected", "remote", r.RemoteAddr)

	send := func(m wsMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(m); err != nil {
			appLog.Debug("websocket write failed", "remote", r.RemoteAddr, "err", err)
			return false
		}
		return true
	}

	if !send(wsMessage{Type: "events", Data: s.store.Events()}) ||
		!send(wsMessage{Type: "chat", Data: s.chat.Log().Messages()}) {
		return
	}

	for {
		select {
		case snap, ok := <-events:
			if !ok || !send(wsMessage{Type: "events", Data: snap}) {
				return
			}
		case msgs, ok := <-messages:
			if !ok || !send(wsMessage{Type: "chat", Data: msgs}) {
				return
			}
		case <-closed:
			return
		case <-s.baseCtx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}
