package core

import (
	"errors"
	"fmt"
	"time"
)

// Verdict is the outcome of one face-classification attempt
type Verdict int

const (
	VerdictAbsent Verdict = iota
	VerdictPresent
	VerdictInconclusive // frame too dark to classify
)

func (v Verdict) String() string {
	switch v {
	case VerdictPresent:
		return "present"
	case VerdictAbsent:
		return "absent"
	case VerdictInconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating the presence score against the lock thresholds
type Decision int

const (
	DecisionNone Decision = iota
	DecisionLock
	DecisionClearFlag
)

func (d Decision) String() string {
	switch d {
	case DecisionLock:
		return "lock"
	case DecisionClearFlag:
		return "clear_flag"
	default:
		return "none"
	}
}

// EngineState is the coarse state of the decision engine as of the last tick
type EngineState int

const (
	StateActive EngineState = iota
	StateIdleWatching
	StateCooldown
	StateSuspended
)

func (s EngineState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateIdleWatching:
		return "idle_watching"
	case StateCooldown:
		return "cooldown"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON responses
func (s EngineState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText
func (s *EngineState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = StateActive
	case "idle_watching":
		*s = StateIdleWatching
	case "cooldown":
		*s = StateCooldown
	case "suspended":
		*s = StateSuspended
	default:
		return fmt.Errorf("unknown engine state %q", string(text))
	}
	return nil
}

// Classification is what the face classifier reports for one frame
type Classification struct {
	Verdict    Verdict
	Faces      int     // number of faces found, 0 when inconclusive
	Brightness float64 // mean grayscale brightness (0-255)
}

// SessionEventKind identifies an OS session lock transition
type SessionEventKind int

const (
	SessionLocked SessionEventKind = iota + 1
	SessionUnlocked
)

func (k SessionEventKind) String() string {
	switch k {
	case SessionLocked:
		return "locked"
	case SessionUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// SessionEvent is delivered by a session notifier when the OS session locks or unlocks
type SessionEvent struct {
	Kind   SessionEventKind
	Source string // e.g. "logind", "screensaver", "wts"
	At     time.Time
}

// EventKind classifies journal and notification events
type EventKind string

const (
	EventLock            EventKind = "lock"
	EventLockFailed      EventKind = "lock_failed"
	EventFlagCleared     EventKind = "flag_cleared"
	EventSessionLocked   EventKind = "session_locked"
	EventSessionUnlocked EventKind = "session_unlocked"
	EventSampleAborted   EventKind = "sample_aborted"
	EventHeartbeat       EventKind = "heartbeat"
)

// Event is a noteworthy engine occurrence, journaled and forwarded to notification sinks
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Score     int       `json:"score"`
	SelfLock  bool      `json:"self_lock"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Errors reported by collaborators and configuration
var (
	ErrCameraUnavailable          = errors.New("camera unavailable")
	ErrEmptyFrame                 = errors.New("empty frame")
	ErrClassifierUnavailable      = errors.New("face classifier unavailable")
	ErrLockFailed                 = errors.New("workstation lock failed")
	ErrSessionNotifierUnsupported = errors.New("session notifications not supported on this platform")
	ErrIdleUnsupported            = errors.New("idle time not available on this platform")
	ErrInvalidConfig              = errors.New("invalid configuration")
)
