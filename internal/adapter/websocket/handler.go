package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/bzzzt/internal/domain"
)

const maxMessageSize = 512

// DoorService is the part of the door service the WebSocket endpoint drives.
type DoorService interface {
	Admit(ctx context.Context, label string, transport domain.Transport) (domain.ConnKey, error)
	Receive(key domain.ConnKey, payload []byte)
	Heartbeat(key domain.ConnKey)
	Disconnect(key domain.ConnKey)
}

// Handler upgrades GET /ws?id=<label> and runs the read pump of the connection.
type Handler struct {
	door     DoorService
	clock    clockwork.Clock
	upgrader websocket.Upgrader
}

func NewHandler(door DoorService, checkOrigin func(r *http.Request) bool, clock clockwork.Clock) *Handler {
	return &Handler{
		door:  door,
		clock: clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("id")
	if label == "" {
		http.Error(w, "missing id query parameter", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error response.
		slog.Warn("WebSocket upgrade failed", "label", label, "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	writer := NewClientWriter(conn, h.clock)

	key, err := h.door.Admit(r.Context(), label, writer)
	if err != nil {
		code := domain.CloseTryAgainLater
		if errors.Is(err, domain.ErrServiceStopped) {
			code = domain.CloseGoingAway
		}
		slog.Warn("WebSocket client rejected", "label", label, "remote_addr", r.RemoteAddr, "error", err)
		writer.Close(code, err.Error())
		<-writer.Done()
		return
	}

	conn.SetPongHandler(func(string) error {
		h.door.Heartbeat(key)
		return nil
	})

	h.readPump(conn, key)
	h.door.Disconnect(key)
}

// readPump hands every data frame to the door service in arrival order until
// the connection fails or is closed by either side.
func (h *Handler) readPump(conn *websocket.Conn, key domain.ConnKey) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.Debug("WebSocket read failed", "conn", key.String(), "error", err)
			}
			return
		}
		h.door.Receive(key, payload)
	}
}
