package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewatch/internal/core"
	"facewatch/internal/storage"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	storage, err := New(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		storage.Close()
	})

	return storage
}

func TestSQLiteStorage_AppendAndList(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	lock := &core.Event{Kind: core.EventLock, Score: 14, SelfLock: true, CreatedAt: base}
	require.NoError(t, s.AppendEvent(ctx, lock))
	assert.True(t, strings.HasPrefix(lock.ID, "evt_"))

	unlock := &core.Event{Kind: core.EventSessionUnlocked, Score: 50, SelfLock: true, Detail: "logind", CreatedAt: base.Add(time.Minute)}
	require.NoError(t, s.AppendEvent(ctx, unlock))

	events, err := s.ListEvents(ctx, storage.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)

	// newest first
	assert.Equal(t, unlock.ID, events[0].ID)
	assert.Equal(t, core.EventSessionUnlocked, events[0].Kind)
	assert.Equal(t, "logind", events[0].Detail)
	assert.True(t, events[0].SelfLock)
	assert.True(t, events[0].CreatedAt.Equal(unlock.CreatedAt))

	assert.Equal(t, lock.ID, events[1].ID)
	assert.Equal(t, 14, events[1].Score)
	assert.Empty(t, events[1].Detail)
}

func TestSQLiteStorage_AppendKeepsGivenID(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	event := &core.Event{ID: "evt_fixed", Kind: core.EventHeartbeat}
	require.NoError(t, s.AppendEvent(ctx, event))
	assert.Equal(t, "evt_fixed", event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	// duplicate IDs are rejected by the primary key
	assert.Error(t, s.AppendEvent(ctx, &core.Event{ID: "evt_fixed", Kind: core.EventHeartbeat}))
}

func TestSQLiteStorage_ListFilters(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendEvent(ctx, &core.Event{Kind: core.EventHeartbeat, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, s.AppendEvent(ctx, &core.Event{Kind: core.EventLock, CreatedAt: base.Add(10 * time.Minute)}))

	locks, err := s.ListEvents(ctx, storage.EventFilter{Kind: core.EventLock})
	require.NoError(t, err)
	assert.Len(t, locks, 1)

	recent, err := s.ListEvents(ctx, storage.EventFilter{Since: base.Add(3 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	limited, err := s.ListEvents(ctx, storage.EventFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, core.EventLock, limited[0].Kind)
}

func TestSQLiteStorage_ListEmpty(t *testing.T) {
	s := setupTestDB(t)

	events, err := s.ListEvents(context.Background(), storage.EventFilter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestSQLiteStorage_CountEvents(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendEvent(ctx, &core.Event{Kind: core.EventLock, CreatedAt: base}))
	require.NoError(t, s.AppendEvent(ctx, &core.Event{Kind: core.EventLock, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.AppendEvent(ctx, &core.Event{Kind: core.EventSessionLocked, CreatedAt: base.Add(time.Hour)}))

	n, err := s.CountEvents(ctx, core.EventLock, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountEvents(ctx, "", base)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteStorage_PruneEvents(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendEvent(ctx, &core.Event{Kind: core.EventHeartbeat, CreatedAt: base.Add(-48 * time.Hour)}))
	require.NoError(t, s.AppendEvent(ctx, &core.Event{Kind: core.EventHeartbeat, CreatedAt: base}))

	removed, err := s.PruneEvents(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	events, err := s.ListEvents(ctx, storage.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSQLiteStorage_ConcurrentAppend(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AppendEvent(ctx, &core.Event{Kind: core.EventHeartbeat}))
		}()
	}
	wg.Wait()

	n, err := s.CountEvents(ctx, "", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
