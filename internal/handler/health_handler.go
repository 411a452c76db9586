package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by the Postgres pool and the Redis client
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	serviceName string
	db          Pinger
	redis       Pinger
}

// NewHealthHandler creates a new HealthHandler; redis may be nil
func NewHealthHandler(serviceName string, db Pinger, redis Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, db: db, redis: redis}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.serviceName,
	})
}

// Ready checks if the service is ready to accept traffic
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	body := gin.H{"service": h.serviceName}
	ready := true

	if err := h.db.Ping(ctx); err != nil {
		body["database"] = "disconnected"
		body["database_error"] = err.Error()
		ready = false
	} else {
		body["database"] = "connected"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			body["redis"] = "disconnected"
			body["redis_error"] = err.Error()
			ready = false
		} else {
			body["redis"] = "connected"
		}
	}

	if !ready {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}
