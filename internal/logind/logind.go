//go:build linux

// Package logind resolves the caller's systemd-logind session on the system bus.
package logind

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	Dest             = "org.freedesktop.login1"
	Path             = dbus.ObjectPath("/org/freedesktop/login1")
	ManagerInterface = "org.freedesktop.login1.Manager"
	SessionInterface = "org.freedesktop.login1.Session"
)

// ResolveSession prefers XDG_SESSION_ID and falls back to the session owning this process
func ResolveSession(conn *dbus.Conn) (dbus.ObjectPath, error) {
	manager := conn.Object(Dest, Path)

	var path dbus.ObjectPath
	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		if err := manager.Call(ManagerInterface+".GetSession", 0, id).Store(&path); err == nil {
			return path, nil
		}
	}
	if err := manager.Call(ManagerInterface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path); err != nil {
		return "", fmt.Errorf("resolve logind session: %w", err)
	}
	return path, nil
}
