package core

import "sync/atomic"

// SessionGate tracks the externally observed OS session lock state.
//
// The session listener writes it; the tick worker reads it without blocking. An unlock
// leaves a pending reset that the tick worker collects with TakeUnlock, so score and
// lock flag are only ever mutated on the tick worker.
type SessionGate struct {
	suspended     atomic.Bool
	selfLocked    atomic.Bool
	unlockPending atomic.Bool
	available     atomic.Bool
}

// NewSessionGate creates an unsuspended gate
func NewSessionGate() *SessionGate {
	return &SessionGate{}
}

// OnExternalLock suspends tick processing and records whether the engine's lock flag was
// set at this instant. A flag left over from a lock whose unlock reset has not been
// collected yet counts as cleared. It returns false when the gate was already suspended.
func (g *SessionGate) OnExternalLock(lockFlag bool) (selfLocked bool, changed bool) {
	if !g.suspended.CompareAndSwap(false, true) {
		return false, false
	}
	selfLocked = lockFlag && !g.unlockPending.Load()
	g.selfLocked.Store(selfLocked)
	return selfLocked, true
}

// OnExternalUnlock resumes tick processing and schedules a state reset. It returns the
// self-lock attribution of the lock being ended and false when the gate was not suspended.
func (g *SessionGate) OnExternalUnlock() (selfLocked bool, changed bool) {
	if !g.suspended.CompareAndSwap(true, false) {
		return false, false
	}
	selfLocked = g.selfLocked.Swap(false)
	g.unlockPending.Store(true)
	return selfLocked, true
}

// IsSuspended reports whether tick processing is suspended
func (g *SessionGate) IsSuspended() bool {
	return g.suspended.Load()
}

// SelfLocked reports the attribution captured at the current lock
func (g *SessionGate) SelfLocked() bool {
	return g.selfLocked.Load()
}

// UnlockPending reports whether an unlock reset is waiting for the tick worker
func (g *SessionGate) UnlockPending() bool {
	return g.unlockPending.Load()
}

// TakeUnlock reports and clears a pending unlock reset
func (g *SessionGate) TakeUnlock() bool {
	return g.unlockPending.Swap(false)
}

// SetAvailable records whether a session notifier is feeding the gate
func (g *SessionGate) SetAvailable(ok bool) {
	g.available.Store(ok)
}

// Available reports whether suspension capability is active (false in degraded mode)
func (g *SessionGate) Available() bool {
	return g.available.Load()
}
