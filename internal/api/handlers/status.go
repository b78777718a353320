package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facewatch/internal/agent"
	"facewatch/internal/core"
)

// StatusProvider exposes the live engine status
type StatusProvider interface {
	Snapshot() agent.Snapshot
}

// EventCounter counts journaled events
type EventCounter interface {
	CountEvents(ctx context.Context, kind core.EventKind, since time.Time) (int, error)
}

// StatusHandler handles engine status requests
type StatusHandler struct {
	engine  StatusProvider
	counter EventCounter
	logger  *slog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(engine StatusProvider, counter EventCounter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		engine:  engine,
		counter: counter,
		logger:  logger.With("component", "status-api"),
	}
}

// GetStatus returns the current engine snapshot
// GET /v1/status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

// StatsResponse is the body of GET /v1/stats
type StatsResponse struct {
	core.StatsSnapshot
	DetectionRate float64 `json:"detection_rate"`
	LocksLast24h  int     `json:"locks_last_24h"`
	UnlocksLast24 int     `json:"unlocks_last_24h"`
}

// GetStats returns process counters plus journaled lock activity for the last day
// GET /v1/stats
func (h *StatusHandler) GetStats(c *gin.Context) {
	stats := h.engine.Snapshot().Stats
	resp := StatsResponse{
		StatsSnapshot: stats,
		DetectionRate: stats.DetectionRate(),
	}

	if h.counter != nil {
		ctx := c.Request.Context()
		since := time.Now().Add(-24 * time.Hour)

		locks, err := h.counter.CountEvents(ctx, core.EventLock, since)
		if err != nil {
			h.logger.Error("failed to count lock events", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read event journal",
				"code":  "INTERNAL_ERROR",
			})
			return
		}
		unlocks, err := h.counter.CountEvents(ctx, core.EventSessionUnlocked, since)
		if err != nil {
			h.logger.Error("failed to count unlock events", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read event journal",
				"code":  "INTERNAL_ERROR",
			})
			return
		}
		resp.LocksLast24h = locks
		resp.UnlocksLast24 = unlocks
	}

	c.JSON(http.StatusOK, resp)
}
