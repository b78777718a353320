//go:build darwin

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"facewatch/internal/core"
)

// lockCommandTimeout bounds the pmset call so a hung helper cannot stall a tick
const lockCommandTimeout = 5 * time.Second

// DarwinPlatform sleeps the display with pmset. The session locks only when
// "Require password immediately after sleep" is enabled in the system settings.
type DarwinPlatform struct {
	logger *slog.Logger
}

// NewDarwinPlatform checks that pmset is available
func NewDarwinPlatform(logger *slog.Logger) (*DarwinPlatform, error) {
	if _, err := exec.LookPath("pmset"); err != nil {
		return nil, fmt.Errorf("%w: pmset not found: %v", core.ErrLockFailed, err)
	}
	return &DarwinPlatform{
		logger: logger.With("component", "platform-darwin"),
	}, nil
}

// LockWorkstation puts the display to sleep immediately
func (p *DarwinPlatform) LockWorkstation() error {
	ctx, cancel := context.WithTimeout(context.Background(), lockCommandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "pmset", "displaysleepnow").CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: pmset displaysleepnow: %v (%s)", core.ErrLockFailed, err, out)
	}

	p.logger.Info("display put to sleep")
	return nil
}

// NewPlatform creates a new platform implementation for the current OS
func NewPlatform(logger *slog.Logger) (Platform, error) {
	p, err := NewDarwinPlatform(logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

var _ Platform = (*DarwinPlatform)(nil)
