package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/pkg/realtime"
)

// WebSocketHandler upgrades dashboard connections and attaches them to the hub
type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewWebSocketHandler creates a handler accepting connections from allowedOrigins ("*" allows any)
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigins []string, logger *logrus.Logger) *WebSocketHandler {
	allowAll := false
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || origins[origin]
			},
		},
	}
}

// Serve handles GET /api/ws
func (h *WebSocketHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.WithError(err).WithField("ip", c.ClientIP()).Warn("WebSocket upgrade failed")
		return
	}

	h.hub.ServeConn(conn)
}
