package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"example.com/stuff-happens/internal/game"
	"github.com/gorilla/websocket"
)

const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler streams the caller's session events as {type,payload} frames.
// The feed is read-only; anything the client sends is discarded.
type EventsHandler struct {
	Hub          *game.Hub
	Log          *slog.Logger
	PingInterval time.Duration
}

func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing auth context")
		return
	}

	// subscribe before the handshake completes so nothing published after it is missed
	sub := h.Hub.Subscribe(userID, eventBuffer)
	defer h.Hub.Unsubscribe(sub)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	h.Log.Debug("event feed attached", "user", userID, "username", usernameFromContext(r.Context()))

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := h.PingInterval
	if ping <= 0 {
		ping = 25 * time.Second
	}
	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			h.Log.Debug("event feed detached", "user", userID)
			return
		}
	}
}
