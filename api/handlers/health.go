package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/restaurant-ops/backend/internal/hub"
)

// HealthHandler reports process liveness and hub occupancy.
type HealthHandler struct {
	hub *hub.Hub
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(h *hub.Hub) *HealthHandler {
	return &HealthHandler{hub: h}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": h.hub.ClientCount(),
	})
}

// RegisterRoutes registers the health route on the router.
func (h *HealthHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
}
