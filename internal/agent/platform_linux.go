//go:build linux

package agent

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"facewatch/internal/core"
	"facewatch/internal/logind"
)

// LinuxPlatform locks the graphical session through systemd-logind
type LinuxPlatform struct {
	conn    *dbus.Conn
	session dbus.ObjectPath
	logger  *slog.Logger
}

// NewLinuxPlatform resolves the caller's logind session on the system bus
func NewLinuxPlatform(logger *slog.Logger) (*LinuxPlatform, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	session, err := logind.ResolveSession(conn)
	if err != nil {
		return nil, err
	}

	return &LinuxPlatform{
		conn:    conn,
		session: session,
		logger:  logger.With("component", "platform-linux", "session", string(session)),
	}, nil
}

// LockWorkstation asks logind to lock the session; the desktop's screen locker reacts to it
func (p *LinuxPlatform) LockWorkstation() error {
	call := p.conn.Object(logind.Dest, p.session).Call(logind.SessionInterface+".Lock", 0)
	if call.Err != nil {
		return fmt.Errorf("%w: %v", core.ErrLockFailed, call.Err)
	}

	p.logger.Info("workstation locked")
	return nil
}

// NewPlatform creates a new platform implementation for the current OS
func NewPlatform(logger *slog.Logger) (Platform, error) {
	p, err := NewLinuxPlatform(logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Ensure LinuxPlatform implements Platform
var _ Platform = (*LinuxPlatform)(nil)
