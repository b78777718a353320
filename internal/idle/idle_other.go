//go:build !linux && !windows

package idle

import (
	"context"
	"log/slog"

	"facewatch/internal/core"
)

// NewProvider reports that idle detection is unavailable on this platform
func NewProvider(ctx context.Context, logger *slog.Logger) (core.IdleProvider, error) {
	return nil, core.ErrIdleUnsupported
}
