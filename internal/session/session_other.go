//go:build !linux && !windows

package session

import (
	"log/slog"

	"facewatch/internal/core"
)

// New reports that session notifications are unavailable on this platform
func New(logger *slog.Logger) (Notifier, error) {
	return nil, core.ErrSessionNotifierUnsupported
}
