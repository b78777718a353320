package core

import (
	"sync"
	"time"
)

// CooldownGate throttles camera sampling independently of the tick cadence
type CooldownGate struct {
	now      func() time.Time
	cooldown time.Duration

	mu   sync.Mutex
	last time.Time // zero until the first sample
}

// NewCooldownGate creates a gate that permits the first sample immediately
func NewCooldownGate(now func() time.Time, cooldown time.Duration) *CooldownGate {
	if now == nil {
		now = time.Now
	}
	return &CooldownGate{
		now:      now,
		cooldown: cooldown,
	}
}

// Permit reports whether a sample may be taken now
func (g *CooldownGate) Permit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return true
	}
	return g.now().Sub(g.last) >= g.cooldown
}

// RecordSampleTaken starts a fresh cooldown. Call after every attempt, whatever its outcome.
func (g *CooldownGate) RecordSampleTaken() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = g.now()
}

// Clear forgets the last sample so the next Permit succeeds
func (g *CooldownGate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = time.Time{}
}

// Remaining returns how long until sampling is permitted again
func (g *CooldownGate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return 0
	}
	remaining := g.cooldown - g.now().Sub(g.last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LastSample returns when the last sample was recorded, zero if none
func (g *CooldownGate) LastSample() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
