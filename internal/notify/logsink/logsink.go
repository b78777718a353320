// Package logsink provides a notification sink that writes events to the log.
// It is always registered so every notification is visible in the agent's log file.
package logsink

import (
	"context"
	"log/slog"

	"facewatch/internal/core"
	"facewatch/internal/notify"
)

const SinkName = "log"

// Sink writes events as structured log records
type Sink struct {
	logger *slog.Logger
}

// New creates a new log sink
func New(logger *slog.Logger) *Sink {
	return &Sink{
		logger: logger.With("sink", SinkName),
	}
}

// Name returns the sink name
func (s *Sink) Name() string {
	return SinkName
}

// Notify logs the event; lock events are logged at warn level
func (s *Sink) Notify(ctx context.Context, event core.Event) error {
	level := slog.LevelInfo
	switch event.Kind {
	case core.EventLock, core.EventLockFailed:
		level = slog.LevelWarn
	case core.EventHeartbeat:
		level = slog.LevelDebug
	}

	s.logger.Log(ctx, level, "notification",
		"event_id", event.ID,
		"kind", event.Kind,
		"score", event.Score,
		"self_lock", event.SelfLock,
		"detail", event.Detail,
	)
	return nil
}

// Ensure Sink implements the interface
var _ notify.Sink = (*Sink)(nil)
