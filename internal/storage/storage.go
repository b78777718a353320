package storage

import (
	"context"
	"time"

	"facewatch/internal/core"
)

// EventFilter narrows ListEvents results
type EventFilter struct {
	Kind  core.EventKind // empty matches every kind
	Since time.Time      // zero matches every time
	Limit int            // 0 uses DefaultEventLimit
}

const (
	DefaultEventLimit = 50
	MaxEventLimit     = 1000
)

// Storage defines the interface for the event journal
type Storage interface {
	// Events
	AppendEvent(ctx context.Context, event *core.Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]*core.Event, error)
	CountEvents(ctx context.Context, kind core.EventKind, since time.Time) (int, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)

	// Lifecycle
	Close() error
}
