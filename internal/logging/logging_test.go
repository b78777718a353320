package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewatch/internal/core"
)

func TestNewLogger_RenamesTimeKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "json", Level: slog.LevelInfo, Output: &buf})

	logger.Info("hello")

	assert.Contains(t, buf.String(), `"timestamp"`)
	assert.NotContains(t, buf.String(), `"time"`)
}

func TestNewLogger_LevelVarChangesAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	logger := NewLogger(LoggerConfig{Format: "text", Level: level, Output: &buf})

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestOpenOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "facewatch.log")

	out, closer, err := OpenOutput(path)
	require.NoError(t, err)

	logger := NewLogger(LoggerConfig{Format: "json", Level: slog.LevelInfo, Output: out})
	logger.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

type stubActuator struct{ err error }

func (s stubActuator) LockWorkstation() error { return s.err }

func TestLockActuatorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "json", Level: slog.LevelInfo, Output: &buf})

	require.NoError(t, NewLockActuatorLogger(stubActuator{}, logger).LockWorkstation())
	assert.Contains(t, buf.String(), "LockWorkstation completed")

	buf.Reset()
	err := NewLockActuatorLogger(stubActuator{err: core.ErrLockFailed}, logger).LockWorkstation()
	assert.ErrorIs(t, err, core.ErrLockFailed)
	assert.Contains(t, buf.String(), "LockWorkstation failed")
}

type stubCamera struct{ err error }

func (s stubCamera) Open(ctx context.Context) (core.CameraHandle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return stubHandle{}, nil
}

type stubHandle struct{}

func (stubHandle) ReadFrame() (core.Frame, error) { return nil, core.ErrEmptyFrame }
func (stubHandle) Release() error                 { return nil }

func TestCameraLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Format: "json", Level: slog.LevelDebug, Output: &buf})

	h, err := NewCameraLogger(stubCamera{}, logger).Open(context.Background())
	require.NoError(t, err)
	_, err = h.ReadFrame()
	assert.ErrorIs(t, err, core.ErrEmptyFrame)
	require.NoError(t, h.Release())
	assert.Contains(t, buf.String(), "Release completed")

	_, err = NewCameraLogger(stubCamera{err: errors.New("busy")}, logger).Open(context.Background())
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "Open failed")
}
