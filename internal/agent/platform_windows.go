//go:build windows

package agent

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows"

	"facewatch/internal/core"
)

var procLockWorkStation = windows.NewLazySystemDLL("user32.dll").NewProc("LockWorkStation")

// WindowsPlatform implements Platform for Windows
type WindowsPlatform struct {
	logger *slog.Logger
}

// NewWindowsPlatform creates a new Windows platform implementation
func NewWindowsPlatform(logger *slog.Logger) *WindowsPlatform {
	return &WindowsPlatform{
		logger: logger.With("component", "platform"),
	}
}

// LockWorkstation locks the Windows workstation using user32.dll
func (p *WindowsPlatform) LockWorkstation() error {
	ret, _, err := procLockWorkStation.Call()
	if ret == 0 {
		// LockWorkStation returns 0 on failure
		return fmt.Errorf("%w: %v", core.ErrLockFailed, err)
	}

	p.logger.Info("workstation locked")
	return nil
}

// NewPlatform creates a new platform implementation for the current OS
func NewPlatform(logger *slog.Logger) (Platform, error) {
	if err := procLockWorkStation.Find(); err != nil {
		return nil, fmt.Errorf("LockWorkStation unavailable: %w", err)
	}
	return NewWindowsPlatform(logger), nil
}

// Ensure WindowsPlatform implements Platform
var _ Platform = (*WindowsPlatform)(nil)
