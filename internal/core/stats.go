package core

import "sync/atomic"

// Statistics are process-lifetime counters. They only ever increase.
type Statistics struct {
	ticks             atomic.Uint64
	cameraActivations atomic.Uint64
	facesDetected     atomic.Uint64
	inconclusive      atomic.Uint64
	lockEvents        atomic.Uint64
	skippedSuspended  atomic.Uint64
	abortedSamples    atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Statistics
type StatsSnapshot struct {
	Ticks             uint64 `json:"ticks"`
	CameraActivations uint64 `json:"camera_activations"`
	FacesDetected     uint64 `json:"faces_detected"`
	Inconclusive      uint64 `json:"inconclusive"`
	LockEvents        uint64 `json:"lock_events"`
	SkippedSuspended  uint64 `json:"skipped_suspended"`
	AbortedSamples    uint64 `json:"aborted_samples"`
}

func (s *Statistics) IncTicks() uint64             { return s.ticks.Add(1) }
func (s *Statistics) IncCameraActivations() uint64 { return s.cameraActivations.Add(1) }
func (s *Statistics) IncFacesDetected() uint64     { return s.facesDetected.Add(1) }
func (s *Statistics) IncInconclusive() uint64      { return s.inconclusive.Add(1) }
func (s *Statistics) IncLockEvents() uint64        { return s.lockEvents.Add(1) }
func (s *Statistics) IncSkippedSuspended() uint64  { return s.skippedSuspended.Add(1) }
func (s *Statistics) IncAbortedSamples() uint64    { return s.abortedSamples.Add(1) }

// Snapshot copies the counters
func (s *Statistics) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Ticks:             s.ticks.Load(),
		CameraActivations: s.cameraActivations.Load(),
		FacesDetected:     s.facesDetected.Load(),
		Inconclusive:      s.inconclusive.Load(),
		LockEvents:        s.lockEvents.Load(),
		SkippedSuspended:  s.skippedSuspended.Load(),
		AbortedSamples:    s.abortedSamples.Load(),
	}
}

// DetectionRate is the percentage of camera activations that found a face
func (s StatsSnapshot) DetectionRate() float64 {
	if s.CameraActivations == 0 {
		return 0
	}
	return float64(s.FacesDetected) * 100 / float64(s.CameraActivations)
}
