// Package handlers provides HTTP request handlers.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/restaurant-ops/backend/internal/hub"
)

// WebSocketHandler exposes the hub's connection endpoint.
type WebSocketHandler struct {
	hubHandler *hub.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hubHandler *hub.Handler) *WebSocketHandler {
	return &WebSocketHandler{hubHandler: hubHandler}
}

// Connect handles GET /ws - admits a staff client into the event hub.
// Establishment parameters travel in the query string: token and role.
// Admission failures are reported on the socket itself as close frames,
// so there is nothing useful to return over HTTP here.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if err := h.hubHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// Upgrade failed; the upgrader already wrote the HTTP error.
		return
	}
}

// RegisterRoutes registers the WebSocket route on the router.
func (h *WebSocketHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.Connect)
}
