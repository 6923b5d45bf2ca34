package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the health check probes
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// PingContext calls f
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports the state of the database and, when enabled, Redis
type HealthHandler struct {
	version string
	db      Pinger
	redis   Pinger
	clients func() int
}

// NewHealthHandler creates a health handler. redis may be nil.
func NewHealthHandler(version string, db, redis Pinger, clients func() int) *HealthHandler {
	return &HealthHandler{version: version, db: db, redis: redis, clients: clients}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
			"error":    err.Error(),
		})
		return
	}

	body := gin.H{
		"status":    "healthy",
		"database":  "healthy",
		"version":   h.version,
		"timestamp": time.Now().Unix(),
	}
	if h.clients != nil {
		body["subscribers"] = h.clients()
	}
	if h.redis != nil {
		if err := h.redis.PingContext(ctx); err != nil {
			// fan-out degrades to this instance only
			body["redis"] = "unhealthy"
		} else {
			body["redis"] = "healthy"
		}
	}

	c.JSON(http.StatusOK, body)
}
