// Package agent runs the presence-based auto-lock engine on the local workstation.
package agent

import (
	"errors"
	"fmt"
	"time"

	"facewatch/internal/core"
)

var (
	ErrInvalidTick      = errors.New("tick_interval must be positive")
	ErrInvalidIdle      = errors.New("idle_threshold must be positive")
	ErrInvalidCooldown  = errors.New("camera_cooldown must be positive")
	ErrInvalidWarmup    = errors.New("camera_warmup must not be negative")
	ErrInvalidHeartbeat = errors.New("heartbeat_interval must be positive")
)

// Config holds the engine tunables. All values are fixed for the process lifetime.
type Config struct {
	TickInterval      time.Duration // Fixed delay between ticks (default: 5s)
	IdleThreshold     time.Duration // Input idle time before the camera may run (default: 7s)
	CameraCooldown    time.Duration // Minimum gap between camera samples (default: 8s)
	CameraWarmup      time.Duration // Wait between opening the camera and reading a frame (default: 1s)
	ReleaseGrace      time.Duration // Wait after releasing the camera before it counts as free (default: 500ms)
	HeartbeatInterval time.Duration // Statistics heartbeat period (default: 60s)
	ActiveLogInterval time.Duration // Status line period while the user is active (default: 30s)
	SuspendedLogEvery uint64        // Liveness log every N skipped ticks while suspended (default: 12)
	Score             core.ScoreConfig
	LockThreshold     int // Lock when the score drops below this (default: 20)
	RecoveryMargin    int // Clear the lock flag once the score exceeds threshold+margin (default: 10)
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		TickInterval:      5 * time.Second,
		IdleThreshold:     7 * time.Second,
		CameraCooldown:    8 * time.Second,
		CameraWarmup:      1 * time.Second,
		ReleaseGrace:      500 * time.Millisecond,
		HeartbeatInterval: 60 * time.Second,
		ActiveLogInterval: 30 * time.Second,
		SuspendedLogEvery: 12,
		Score:             core.DefaultScoreConfig(),
		LockThreshold:     20,
		RecoveryMargin:    10,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return ErrInvalidTick
	}
	if c.IdleThreshold <= 0 {
		return ErrInvalidIdle
	}
	if c.CameraCooldown <= 0 {
		return ErrInvalidCooldown
	}
	if c.CameraWarmup < 0 || c.ReleaseGrace < 0 {
		return ErrInvalidWarmup
	}
	if c.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeat
	}
	if err := c.Score.Validate(); err != nil {
		return err
	}
	if err := core.ValidatePolicy(c.LockThreshold, c.RecoveryMargin, c.Score); err != nil {
		return fmt.Errorf("lock policy: %w", err)
	}
	return nil
}
