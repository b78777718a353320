package core

import (
	"context"
	"time"
)

// IdleProvider reports how long the local user has provided no keyboard or mouse input.
// Implementations may return a negative duration on clock adjustments; callers clamp.
type IdleProvider interface {
	IdleTime(ctx context.Context) (time.Duration, error)
}

// Camera opens the capture device for a single sample
type Camera interface {
	Open(ctx context.Context) (CameraHandle, error)
}

// CameraHandle is an opened capture device. Release must be called exactly once.
type CameraHandle interface {
	ReadFrame() (Frame, error)
	Release() error
}

// Frame is a captured image owned by the caller until Close
type Frame interface {
	Close() error
}

// Classifier decides whether a face is present in a frame
type Classifier interface {
	Classify(frame Frame) (Classification, error)
}

// LockActuator locks the workstation. Calls are fire-and-forget.
type LockActuator interface {
	LockWorkstation() error
}

// Notifier receives user-facing events. Absence must not affect engine behavior.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Journal records engine events
type Journal interface {
	AppendEvent(ctx context.Context, event *Event) error
}

// NopNotifier discards every event
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

// NopJournal discards every event
type NopJournal struct{}

func (NopJournal) AppendEvent(context.Context, *Event) error { return nil }

var (
	_ Notifier = NopNotifier{}
	_ Journal  = NopJournal{}
)
