package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewatch/internal/core"
)

func testClientLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPStatusClient_Status_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/status", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"state":          "cooldown",
			"score":          14,
			"lock_flag":      true,
			"session_locked": false,
			"idle_seconds":   42,
			"stats":          map[string]any{"ticks": 9, "lock_events": 1},
		})
	}))
	defer server.Close()

	client := NewHTTPStatusClient(server.URL, "test-token", testClientLogger())
	snap, err := client.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, core.StateCooldown, snap.State)
	assert.Equal(t, 14, snap.Score)
	assert.True(t, snap.LockFlag)
	assert.Equal(t, int64(42), snap.IdleSeconds)
	assert.Equal(t, uint64(9), snap.Stats.Ticks)
	assert.Equal(t, uint64(1), snap.Stats.LockEvents)
}

func TestHTTPStatusClient_Status_EngineSnapshot(t *testing.T) {
	want := Snapshot{State: core.StateSuspended, Score: 50, SessionLocked: true, SessionMonitoring: true}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(want)
	}))
	defer server.Close()

	snap, err := NewHTTPStatusClient(server.URL, "", testClientLogger()).Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, want.State, snap.State)
	assert.Equal(t, want.Score, snap.Score)
	assert.True(t, snap.SessionLocked)
}

func TestHTTPStatusClient_Events_Query(t *testing.T) {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/events", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "lock", r.URL.Query().Get("kind"))

		json.NewEncoder(w).Encode(EventsResponse{Events: []*core.Event{
			{ID: "evt_1", Kind: core.EventLock, Score: 14, SelfLock: true, CreatedAt: created},
		}})
	}))
	defer server.Close()

	client := NewHTTPStatusClient(server.URL, "", testClientLogger())
	events, err := client.Events(context.Background(), 5, core.EventLock)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt_1", events[0].ID)
	assert.True(t, events[0].CreatedAt.Equal(created))
}

func TestHTTPStatusClient_NoTokenHeaderWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"events":[]}`))
	}))
	defer server.Close()

	client := NewHTTPStatusClient(server.URL, "", testClientLogger())
	events, err := client.Events(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHTTPStatusClient_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPStatusClient(server.URL, "bad-token", testClientLogger())
	_, err := client.Status(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestHTTPStatusClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewHTTPStatusClient(server.URL, "", testClientLogger())
	_, err := client.Status(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPStatusClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewHTTPStatusClient(server.URL, "", testClientLogger())
	_, err := client.Status(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestHTTPStatusClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	client := NewHTTPStatusClient(server.URL, "", testClientLogger())
	_, err := client.Status(ctx)
	require.Error(t, err)
}
