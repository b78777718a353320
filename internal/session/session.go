// Package session delivers OS session lock and unlock notifications.
package session

import (
	"context"

	"facewatch/internal/core"
)

// Notifier delivers session lock transitions. Construction subscribes to the OS source
// and fails with core.ErrSessionNotifierUnsupported when none is reachable.
type Notifier interface {
	// Run sends events until ctx is done (blocking)
	Run(ctx context.Context, events chan<- core.SessionEvent) error
	// Close releases the OS subscription
	Close() error
}

// send delivers ev unless ctx is done first
func send(ctx context.Context, events chan<- core.SessionEvent, ev core.SessionEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
