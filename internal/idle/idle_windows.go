//go:build windows

package idle

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"facewatch/internal/core"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// Win32Provider reads idle time with GetLastInputInfo
type Win32Provider struct {
	logger *slog.Logger
}

// NewProvider verifies the Win32 entry points are present
func NewProvider(ctx context.Context, logger *slog.Logger) (core.IdleProvider, error) {
	if err := procGetLastInputInfo.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIdleUnsupported, err)
	}
	if err := procGetTickCount.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIdleUnsupported, err)
	}
	return &Win32Provider{logger: logger.With("component", "idle", "source", "win32")}, nil
}

// IdleTime returns the time since the last input event in the session
func (p *Win32Provider) IdleTime(ctx context.Context) (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ret, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0, fmt.Errorf("GetLastInputInfo: %w", err)
	}

	now, _, _ := procGetTickCount.Call()
	// both counters wrap every 49.7 days; unsigned subtraction handles it
	elapsed := uint32(now) - info.dwTime
	return toDuration(elapsed, time.Millisecond)
}

var _ core.IdleProvider = (*Win32Provider)(nil)
