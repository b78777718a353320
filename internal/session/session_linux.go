//go:build linux

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"facewatch/internal/core"
	"facewatch/internal/logind"
)

const (
	screenSaverInterface = "org.freedesktop.ScreenSaver"
	screenSaverChanged   = screenSaverInterface + ".ActiveChanged"
	logindLockSignal     = logind.SessionInterface + ".Lock"
	logindUnlockSignal   = logind.SessionInterface + ".Unlock"
)

// DBusNotifier listens to logind Lock/Unlock on the system bus and to the desktop
// ScreenSaver ActiveChanged signal on the session bus. Either source is enough.
type DBusNotifier struct {
	system  *dbus.Conn
	session *dbus.Conn
	path    dbus.ObjectPath
	signals chan *dbus.Signal
	logger  *slog.Logger
}

// New subscribes to every reachable source
func New(logger *slog.Logger) (Notifier, error) {
	n := &DBusNotifier{
		signals: make(chan *dbus.Signal, 16),
		logger:  logger.With("component", "session"),
	}

	var errs []error
	if err := n.subscribeLogind(); err != nil {
		errs = append(errs, fmt.Errorf("logind: %w", err))
	}
	if err := n.subscribeScreenSaver(); err != nil {
		errs = append(errs, fmt.Errorf("screensaver: %w", err))
	}

	if n.system == nil && n.session == nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSessionNotifierUnsupported, errors.Join(errs...))
	}
	for _, err := range errs {
		n.logger.Debug("session source unavailable", "error", err)
	}
	return n, nil
}

func (n *DBusNotifier) subscribeLogind() error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return err
	}
	path, err := logind.ResolveSession(conn)
	if err != nil {
		conn.Close()
		return err
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(logind.SessionInterface),
	); err != nil {
		conn.Close()
		return err
	}
	conn.Signal(n.signals)

	n.system = conn
	n.path = path
	n.logger.Info("listening for logind session signals", "session", string(path))
	return nil
}

func (n *DBusNotifier) subscribeScreenSaver() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return err
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(screenSaverInterface),
		dbus.WithMatchMember("ActiveChanged"),
	); err != nil {
		conn.Close()
		return err
	}
	conn.Signal(n.signals)

	n.session = conn
	n.logger.Info("listening for screensaver signals")
	return nil
}

// Run forwards translated signals until ctx is done
func (n *DBusNotifier) Run(ctx context.Context, events chan<- core.SessionEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-n.signals:
			if !ok {
				return nil
			}
			ev, ok := translate(sig, n.path, time.Now())
			if !ok {
				continue
			}
			n.logger.Debug("session signal", "kind", ev.Kind, "source", ev.Source)
			if !send(ctx, events, ev) {
				return nil
			}
		}
	}
}

// Close closes both bus connections
func (n *DBusNotifier) Close() error {
	var errs []error
	if n.system != nil {
		n.system.RemoveSignal(n.signals)
		errs = append(errs, n.system.Close())
	}
	if n.session != nil {
		n.session.RemoveSignal(n.signals)
		errs = append(errs, n.session.Close())
	}
	return errors.Join(errs...)
}

// translate maps a D-Bus signal to a session event. Signals for other logind sessions
// are ignored.
func translate(sig *dbus.Signal, session dbus.ObjectPath, now time.Time) (core.SessionEvent, bool) {
	if sig == nil {
		return core.SessionEvent{}, false
	}

	switch sig.Name {
	case logindLockSignal, logindUnlockSignal:
		if session != "" && sig.Path != session {
			return core.SessionEvent{}, false
		}
		kind := core.SessionLocked
		if sig.Name == logindUnlockSignal {
			kind = core.SessionUnlocked
		}
		return core.SessionEvent{Kind: kind, Source: "logind", At: now}, true

	case screenSaverChanged:
		if len(sig.Body) == 0 {
			return core.SessionEvent{}, false
		}
		active, ok := sig.Body[0].(bool)
		if !ok {
			return core.SessionEvent{}, false
		}
		kind := core.SessionUnlocked
		if active {
			kind = core.SessionLocked
		}
		return core.SessionEvent{Kind: kind, Source: "screensaver", At: now}, true
	}

	return core.SessionEvent{}, false
}

var _ Notifier = (*DBusNotifier)(nil)
