package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"facewatch/internal/agent"
	"facewatch/internal/core"
	"facewatch/internal/storage"
)

// EventLister reads the event journal
type EventLister interface {
	ListEvents(ctx context.Context, filter storage.EventFilter) ([]*core.Event, error)
}

// EventsHandler handles event journal requests
type EventsHandler struct {
	events EventLister
	logger *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(events EventLister, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		events: events,
		logger: logger.With("component", "events-api"),
	}
}

var knownKinds = map[core.EventKind]bool{
	core.EventLock:            true,
	core.EventLockFailed:      true,
	core.EventFlagCleared:     true,
	core.EventSessionLocked:   true,
	core.EventSessionUnlocked: true,
	core.EventSampleAborted:   true,
	core.EventHeartbeat:       true,
}

// ListEvents returns journaled events, newest first
// GET /v1/events?limit=50&kind=lock&since=2026-03-02T09:00:00Z
func (h *EventsHandler) ListEvents(c *gin.Context) {
	var filter storage.EventFilter

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > storage.MaxEventLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be between 1 and " + strconv.Itoa(storage.MaxEventLimit),
				"code":  "INVALID_LIMIT",
			})
			return
		}
		filter.Limit = limit
	}

	if raw := c.Query("kind"); raw != "" {
		kind := core.EventKind(raw)
		if !knownKinds[kind] {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "unknown event kind: " + raw,
				"code":  "INVALID_KIND",
			})
			return
		}
		filter.Kind = kind
	}

	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "since must be an RFC3339 timestamp",
				"code":  "INVALID_SINCE",
			})
			return
		}
		filter.Since = since
	}

	events, err := h.events.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read event journal",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, agent.EventsResponse{Events: events})
}
