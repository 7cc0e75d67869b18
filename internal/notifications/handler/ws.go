package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"slotly/internal/notifications/hub"
	"slotly/pkg/logger"
	"slotly/pkg/token"
)

type WSHandler struct {
	hub      *hub.Hub
	tokens   *token.Manager
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewWSHandler(h *hub.Hub, tokens *token.Manager, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub:    h,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// Serve authenticates the token query parameter and upgrades the connection.
// Browsers cannot set an Authorization header on a websocket handshake, so
// the credential travels as a query parameter here.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, _, err := h.tokens.Verify(raw)
	if err != nil {
		h.log.Warn("Websocket authentication failed", "error", err)
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	h.hub.Connect(userID, conn)
	go h.readLoop(userID, conn)
}

// readLoop drains inbound frames so pings are answered and a closed peer is
// detected promptly. Clients are not expected to send application data.
func (h *WSHandler) readLoop(userID string, conn *websocket.Conn) {
	defer func() {
		h.hub.Disconnect(userID, conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/ws", h.Serve)
}
