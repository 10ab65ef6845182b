package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DatabaseState reports store connectivity as "connected" or "disconnected"
type DatabaseState interface {
	State(ctx context.Context) string
}

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	serviceName string
	version     string
	db          DatabaseState
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(serviceName, version string, db DatabaseState) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, db: db}
}

// RegisterRoutes mounts /health and /ready on the root router
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}

// Health always answers 200 and reports the database state
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
		"version": h.version,
		"db":      h.db.State(c.Request.Context()),
	})
}

// Ready answers 503 until the database is reachable
func (h *HealthHandler) Ready(c *gin.Context) {
	state := h.db.State(c.Request.Context())
	status := http.StatusOK
	label := "ready"
	if state != "connected" {
		status = http.StatusServiceUnavailable
		label = "not ready"
	}
	c.JSON(status, gin.H{
		"status":  label,
		"service": h.serviceName,
		"db":      state,
	})
}
