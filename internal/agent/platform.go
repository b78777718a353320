package agent

import (
	"log/slog"

	"facewatch/internal/core"
)

// Platform abstracts OS-specific workstation control.
// This allows testing the engine with mock implementations.
type Platform interface {
	// LockWorkstation locks the interactive session
	LockWorkstation() error
}

// DryRunPlatform logs lock requests without performing them
type DryRunPlatform struct {
	logger *slog.Logger
}

// NewDryRunPlatform creates a platform that never locks
func NewDryRunPlatform(logger *slog.Logger) *DryRunPlatform {
	return &DryRunPlatform{
		logger: logger.With("component", "platform-dryrun"),
	}
}

// LockWorkstation logs the lock action only
func (p *DryRunPlatform) LockWorkstation() error {
	p.logger.Warn("LOCK_WORKSTATION",
		"action", "lock",
		"note", "dry run - no actual lock performed",
	)
	return nil
}

// Ensure implementations satisfy the interfaces
var (
	_ Platform          = (*DryRunPlatform)(nil)
	_ core.LockActuator = Platform(nil)
)
