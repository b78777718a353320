package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports daemon liveness without touching the engine
type HealthHandler struct {
	started time.Time
}

// NewHealthHandler creates a health handler measuring uptime from started
func NewHealthHandler(started time.Time) *HealthHandler {
	return &HealthHandler{started: started}
}

// GetHealth returns liveness and uptime
// GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "UP",
		"service":        "facewatch",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}
