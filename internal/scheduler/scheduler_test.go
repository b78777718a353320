package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRunner_FirstTickImmediate(t *testing.T) {
	ticked := make(chan struct{}, 1)
	r := NewRunner(time.Hour, func(ctx context.Context) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("first tick did not run immediately")
	}
}

func TestRunner_TicksNeverOverlap(t *testing.T) {
	var running, overlaps, count atomic.Int32
	r := NewRunner(time.Millisecond, func(ctx context.Context) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		count.Add(1)
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	require.Eventually(t, func() bool { return count.Load() >= 5 }, 2*time.Second, time.Millisecond)
	cancel()
	<-r.Done()

	assert.Equal(t, int32(0), overlaps.Load())
}

func TestRunner_FixedDelay(t *testing.T) {
	var mu sync.Mutex
	var starts, ends []time.Time
	r := NewRunner(20*time.Millisecond, func(ctx context.Context) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(starts) >= 3
	}, 2*time.Second, time.Millisecond)
	cancel()
	<-r.Done()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(starts) && i <= len(ends); i++ {
		gap := starts[i].Sub(ends[i-1])
		assert.GreaterOrEqual(t, gap, 15*time.Millisecond, "next tick must wait a full interval after the previous one ends")
	}
}

func TestRunner_PanicDoesNotStopLoop(t *testing.T) {
	var count atomic.Int32
	r := NewRunner(time.Millisecond, func(ctx context.Context) {
		if count.Add(1) == 1 {
			panic("camera exploded")
		}
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	require.Eventually(t, func() bool { return count.Load() >= 3 }, 2*time.Second, time.Millisecond)
}

func TestRunner_StopWaitsForInFlightTick(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	r := NewRunner(time.Hour, func(ctx context.Context) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	}, testLogger())

	go r.Run(context.Background())
	<-started
	r.Stop()
	r.Stop()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.True(t, finished.Load())
}
