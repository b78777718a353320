package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewatch/config"
	"facewatch/internal/agent"
	"facewatch/internal/core"
)

type fakeFrame struct{ closed bool }

func (f *fakeFrame) Close() error { f.closed = true; return nil }

type fakeHandle struct {
	frame    *fakeFrame
	err      error
	released bool
}

func (h *fakeHandle) ReadFrame() (core.Frame, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.frame, nil
}

func (h *fakeHandle) Release() error { h.released = true; return nil }

type fakeCamera struct{ handle *fakeHandle }

func (c *fakeCamera) Open(ctx context.Context) (core.CameraHandle, error) {
	return c.handle, nil
}

type fakeClassifier struct{ result core.Classification }

func (c fakeClassifier) Classify(core.Frame) (core.Classification, error) {
	return c.result, nil
}

func TestAPIBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:7465", apiBaseURL("127.0.0.1:7465"))
	assert.Equal(t, "http://127.0.0.1:9000", apiBaseURL(":9000"))
}

func TestCaptureOnce(t *testing.T) {
	h := &fakeHandle{frame: &fakeFrame{}}
	want := core.Classification{Verdict: core.VerdictPresent, Faces: 1, Brightness: 120}

	got, err := captureOnce(context.Background(), &fakeCamera{handle: h}, fakeClassifier{result: want}, 0)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.True(t, h.released)
	assert.True(t, h.frame.closed)
}

func TestCaptureOnce_ReadFailureReleasesCamera(t *testing.T) {
	h := &fakeHandle{err: core.ErrEmptyFrame}

	_, err := captureOnce(context.Background(), &fakeCamera{handle: h}, fakeClassifier{}, 0)

	assert.ErrorIs(t, err, core.ErrEmptyFrame)
	assert.True(t, h.released)
}

func TestCaptureOnce_CancelledDuringWarmup(t *testing.T) {
	h := &fakeHandle{frame: &fakeFrame{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := captureOnce(ctx, &fakeCamera{handle: h}, fakeClassifier{}, time.Hour)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, h.released)
}

func TestBuildSinks_LogOnly(t *testing.T) {
	registry, err := buildSinks(config.TelegramConfig{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, registry.List())
}

func TestOpenStorage_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.db")

	store, err := openStorage(context.Background(), config.StorageConfig{Path: path, Retention: config.Duration(time.Hour)}, slog.Default())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AppendEvent(context.Background(), &core.Event{ID: "evt_1", Kind: core.EventLock, CreatedAt: time.Now()}))
}

func TestPrintEvents(t *testing.T) {
	var buf bytes.Buffer
	printEvents(&buf, nil)
	assert.Contains(t, buf.String(), "No events")

	buf.Reset()
	printEvents(&buf, []*core.Event{{Kind: core.EventSessionLocked, Score: 12, SelfLock: true, CreatedAt: time.Now()}})
	assert.Contains(t, buf.String(), "session_locked")
	assert.Contains(t, buf.String(), "KIND")
}

func TestPrintSnapshot(t *testing.T) {
	var buf bytes.Buffer
	printSnapshot(&buf, &agent.Snapshot{State: core.StateIdleWatching, Score: 42})

	assert.Contains(t, buf.String(), "42")
	assert.Contains(t, buf.String(), core.StateIdleWatching.String())
}

func TestRootOptions_OverrideLogLevel(t *testing.T) {
	opts := &rootOptions{configPath: filepath.Join(t.TempDir(), "absent.toml"), logLevel: "debug"}

	cfg, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	opts.logLevel = "chatty"
	_, err = opts.load()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
