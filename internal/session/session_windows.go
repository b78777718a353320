//go:build windows

package session

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"facewatch/internal/core"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	wtsapi32 = windows.NewLazySystemDLL("wtsapi32.dll")

	procRegisterClassExW   = user32.NewProc("RegisterClassExW")
	procUnregisterClassW   = user32.NewProc("UnregisterClassW")
	procCreateWindowExW    = user32.NewProc("CreateWindowExW")
	procDestroyWindow      = user32.NewProc("DestroyWindow")
	procDefWindowProcW     = user32.NewProc("DefWindowProcW")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostMessageW       = user32.NewProc("PostMessageW")
	procPostQuitMessage    = user32.NewProc("PostQuitMessage")
	procWTSRegisterSession = wtsapi32.NewProc("WTSRegisterSessionNotification")
	procWTSUnregister      = wtsapi32.NewProc("WTSUnRegisterSessionNotification")
)

const (
	wmClose              = 0x0010
	wmDestroy            = 0x0002
	wmWTSSessionChange   = 0x02B1
	wtsSessionLock       = 0x7
	wtsSessionUnlock     = 0x8
	notifyForThisSession = 0
	hwndMessage          = ^uintptr(2) // HWND_MESSAGE, (HWND)-3
	windowClass          = "FacewatchSessionMonitor"
)

type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     windows.Handle
	hIcon         windows.Handle
	hCursor       windows.Handle
	hbrBackground windows.Handle
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       windows.Handle
}

type point struct {
	x, y int32
}

type msg struct {
	hwnd    windows.HWND
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      point
}

// WTSNotifier receives WM_WTSSESSION_CHANGE on a hidden message-only window
type WTSNotifier struct {
	logger *slog.Logger

	mu     sync.Mutex
	hwnd   uintptr
	ctx    context.Context
	events chan<- core.SessionEvent
}

// New verifies the WTS API is present
func New(logger *slog.Logger) (Notifier, error) {
	for _, p := range []*windows.LazyProc{procWTSRegisterSession, procCreateWindowExW, procRegisterClassExW} {
		if err := p.Find(); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrSessionNotifierUnsupported, err)
		}
	}
	return &WTSNotifier{logger: logger.With("component", "session", "source", "wts")}, nil
}

// Run owns an OS thread for the window message loop until ctx is done
func (n *WTSNotifier) Run(ctx context.Context, events chan<- core.SessionEvent) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var instance windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &instance); err != nil {
		return fmt.Errorf("GetModuleHandleEx: %w", err)
	}

	className, err := windows.UTF16PtrFromString(windowClass)
	if err != nil {
		return err
	}

	wc := wndClassEx{
		lpfnWndProc:   windows.NewCallback(n.wndProc),
		hInstance:     instance,
		lpszClassName: className,
	}
	wc.cbSize = uint32(unsafe.Sizeof(wc))
	if ret, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); ret == 0 {
		return fmt.Errorf("RegisterClassExW: %w", err)
	}
	defer procUnregisterClassW.Call(uintptr(unsafe.Pointer(className)), uintptr(instance))

	hwnd, _, err := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(className)),
		0, 0, 0, 0, 0,
		hwndMessage,
		0,
		uintptr(instance),
		0,
	)
	if hwnd == 0 {
		return fmt.Errorf("CreateWindowExW: %w", err)
	}

	if ret, _, err := procWTSRegisterSession.Call(hwnd, notifyForThisSession); ret == 0 {
		procDestroyWindow.Call(hwnd)
		return fmt.Errorf("WTSRegisterSessionNotification: %w", err)
	}
	defer procWTSUnregister.Call(hwnd)

	n.mu.Lock()
	n.hwnd = hwnd
	n.ctx = ctx
	n.events = events
	n.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			procPostMessageW.Call(hwnd, wmClose, 0, 0)
		case <-stop:
		}
	}()

	n.logger.Info("listening for session lock notifications")

	var m msg
	for {
		ret, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			return fmt.Errorf("GetMessageW: %w", err)
		case 0:
			return nil
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (n *WTSNotifier) wndProc(hwnd, message, wParam, lParam uintptr) uintptr {
	switch message {
	case wmWTSSessionChange:
		var kind core.SessionEventKind
		switch wParam {
		case wtsSessionLock:
			kind = core.SessionLocked
		case wtsSessionUnlock:
			kind = core.SessionUnlocked
		default:
			return 0
		}

		n.mu.Lock()
		ctx, events := n.ctx, n.events
		n.mu.Unlock()
		if events != nil {
			send(ctx, events, core.SessionEvent{Kind: kind, Source: "wts", At: time.Now()})
		}
		return 0

	case wmClose:
		procDestroyWindow.Call(hwnd)
		return 0

	case wmDestroy:
		procPostQuitMessage.Call(0)
		return 0
	}

	ret, _, _ := procDefWindowProcW.Call(hwnd, message, wParam, lParam)
	return ret
}

// Close is a no-op; the window is torn down when Run's context ends
func (n *WTSNotifier) Close() error {
	return nil
}

var _ Notifier = (*WTSNotifier)(nil)
