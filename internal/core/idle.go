package core

import (
	"context"
	"time"
)

// Edge is an idle/active crossing observed between two consecutive ticks
type Edge int

const (
	EdgeNone Edge = iota
	EdgeBecameIdle
	EdgeBecameActive
)

func (e Edge) String() string {
	switch e {
	case EdgeBecameIdle:
		return "became_idle"
	case EdgeBecameActive:
		return "became_active"
	default:
		return "none"
	}
}

// IdleObservation is the result of one IdleTracker query
type IdleObservation struct {
	Idle   time.Duration // whole seconds, never negative
	IsIdle bool          // Idle >= threshold
	Edge   Edge          // crossing since the previous observation
	Err    error         // provider failure; Idle is 0 in that case
}

// IdleTracker wraps an IdleProvider and reports idle/active crossings exactly once each.
// It is owned by the tick worker.
type IdleTracker struct {
	provider  IdleProvider
	threshold time.Duration
	wasIdle   bool
}

// NewIdleTracker creates a tracker that starts in the active classification
func NewIdleTracker(provider IdleProvider, threshold time.Duration) *IdleTracker {
	return &IdleTracker{
		provider:  provider,
		threshold: threshold,
	}
}

// Observe queries the provider and advances the edge tracking
func (t *IdleTracker) Observe(ctx context.Context) IdleObservation {
	idle, err := t.IdleNow(ctx)
	obs := IdleObservation{
		Idle:   idle,
		IsIdle: idle >= t.threshold,
		Err:    err,
	}

	switch {
	case obs.IsIdle && !t.wasIdle:
		obs.Edge = EdgeBecameIdle
	case !obs.IsIdle && t.wasIdle:
		obs.Edge = EdgeBecameActive
	}
	t.wasIdle = obs.IsIdle
	return obs
}

// IdleNow returns the clamped idle time without touching edge tracking.
// A provider failure counts as activity so a broken provider never causes a lock.
func (t *IdleTracker) IdleNow(ctx context.Context) (time.Duration, error) {
	idle, err := t.provider.IdleTime(ctx)
	if err != nil {
		return 0, err
	}
	if idle < 0 {
		return 0, nil
	}
	return idle.Truncate(time.Second), nil
}

// IsIdle reports whether d is at or past the idle threshold
func (t *IdleTracker) IsIdle(d time.Duration) bool {
	return d >= t.threshold
}

// ResetEdge forgets the previous classification so the next Observe starts from active
func (t *IdleTracker) ResetEdge() {
	t.wasIdle = false
}

// Threshold returns the idle threshold
func (t *IdleTracker) Threshold() time.Duration {
	return t.threshold
}
