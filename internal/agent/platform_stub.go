//go:build !windows && !linux && !darwin

package agent

import (
	"fmt"
	"log/slog"
	"runtime"

	"facewatch/internal/core"
)

// NewPlatform fails on systems without a known lock mechanism; run with --dry-run there
func NewPlatform(logger *slog.Logger) (Platform, error) {
	return nil, fmt.Errorf("%w: no lock mechanism for %s", core.ErrLockFailed, runtime.GOOS)
}
