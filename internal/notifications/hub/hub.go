package hub

import (
	"sync"

	"github.com/gorilla/websocket"

	"slotly/pkg/logger"
)

// Hub maps a user id to its live websocket connection. Delivery is best
// effort: a user without a connection is skipped, and a failed write drops
// the connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
	log   *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		conns: make(map[string]*websocket.Conn),
		log:   log,
	}
}

// Connect registers a connection for the user, replacing and closing any
// previous one. A reconnecting client must not be blocked by its own stale
// connection.
func (h *Hub) Connect(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	old, hadOld := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()

	if hadOld {
		_ = old.Close()
		h.log.Debug("Replaced stale websocket connection", "user_id", userID)
	}

	h.log.Info("Websocket client connected", "user_id", userID)
}

// Disconnect removes the user's connection if it is still the given one.
func (h *Hub) Disconnect(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	current, ok := h.conns[userID]
	if ok && current == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()

	h.log.Info("Websocket client disconnected", "user_id", userID)
}

// Send pushes a JSON payload to the user's connection. Returns false when the
// user has no connection or the write failed.
func (h *Hub) Send(userID string, payload any) bool {
	h.mu.RLock()
	conn, ok := h.conns[userID]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	if err := conn.WriteJSON(payload); err != nil {
		h.log.Warn("Websocket write failed, dropping connection", "user_id", userID, "error", err)
		h.Disconnect(userID, conn)
		_ = conn.Close()
		return false
	}

	return true
}

// ConnectedCount reports how many clients are currently connected.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, userID)
	}
}
