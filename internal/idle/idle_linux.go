//go:build linux

package idle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"facewatch/internal/core"
)

// source is a session-bus service that exposes the user's idle time
type source struct {
	name   string
	dest   string
	path   dbus.ObjectPath
	method string
	unit   time.Duration
}

// Probed in order; the first that answers wins.
var sources = []source{
	{
		name:   "mutter",
		dest:   "org.gnome.Mutter.IdleMonitor",
		path:   "/org/gnome/Mutter/IdleMonitor/Core",
		method: "org.gnome.Mutter.IdleMonitor.GetIdletime",
		unit:   time.Millisecond,
	},
	{
		name:   "screensaver",
		dest:   "org.freedesktop.ScreenSaver",
		path:   "/org/freedesktop/ScreenSaver",
		method: "org.freedesktop.ScreenSaver.GetSessionIdleTime",
		unit:   time.Second,
	},
}

// DBusProvider reads idle time from the desktop's D-Bus idle monitor
type DBusProvider struct {
	conn   *dbus.Conn
	source source
	logger *slog.Logger
}

// NewProvider connects to the session bus and selects the first working idle source
func NewProvider(ctx context.Context, logger *slog.Logger) (core.IdleProvider, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", core.ErrIdleUnsupported, err)
	}

	for _, src := range sources {
		p := &DBusProvider{
			conn:   conn,
			source: src,
			logger: logger.With("component", "idle", "source", src.name),
		}
		if _, err := p.IdleTime(ctx); err != nil {
			logger.Debug("idle source unavailable", "source", src.name, "error", err)
			continue
		}
		p.logger.Info("idle source selected")
		return p, nil
	}

	conn.Close()
	return nil, fmt.Errorf("%w: no D-Bus idle monitor answered", core.ErrIdleUnsupported)
}

// IdleTime returns the time since the last keyboard or mouse input
func (p *DBusProvider) IdleTime(ctx context.Context) (time.Duration, error) {
	call := p.conn.Object(p.source.dest, p.source.path).CallWithContext(ctx, p.source.method, 0)
	if call.Err != nil {
		return 0, fmt.Errorf("%s: %w", p.source.name, call.Err)
	}
	if len(call.Body) == 0 {
		return 0, fmt.Errorf("%s: empty reply", p.source.name)
	}
	return toDuration(call.Body[0], p.source.unit)
}

// Close closes the bus connection
func (p *DBusProvider) Close() error {
	return p.conn.Close()
}

var _ core.IdleProvider = (*DBusProvider)(nil)
