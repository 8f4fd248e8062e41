package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signify/internal/logging"
	"github.com/ayusman/signify/internal/recognizer"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusMessage is sent to status feed clients for every changed status.
type StatusMessage struct {
	SessionID string            `json:"session_id"`
	Status    recognizer.Status `json:"status"`
	Timestamp int64             `json:"timestamp"`
}

// StatusHub fans recognition status out to WebSocket clients. New clients
// receive the latest status immediately.
type StatusHub struct {
	clients map[*websocket.Conn]struct{}
	last    []byte
	mu      sync.Mutex
}

// NewStatusHub creates an empty hub.
func NewStatusHub() *StatusHub {
	return &StatusHub{
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *StatusHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(logging.Fields{"error": err.Error()}, "websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	if h.last != nil {
		h.write(conn, h.last)
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish broadcasts st for sessionID to every connected client.
func (h *StatusHub) Publish(sessionID string, st recognizer.Status) error {
	msg, err := json.Marshal(StatusMessage{
		SessionID: sessionID,
		Status:    st,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = msg
	for conn := range h.clients {
		h.write(conn, msg)
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *StatusHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// write sends msg to conn. Callers hold h.mu, which also serializes writers
// per connection.
func (h *StatusHub) write(conn *websocket.Conn, msg []byte) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		conn.Close()
		delete(h.clients, conn)
	}
}
