package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// TickFunc is one unit of periodic work
type TickFunc func(ctx context.Context)

// Runner drives a TickFunc with a fixed delay between the end of one tick and the start
// of the next. Ticks never overlap; a slow tick pushes the next one back.
type Runner struct {
	interval time.Duration
	tick     TickFunc
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	logger   *slog.Logger
}

// NewRunner creates a new runner
func NewRunner(interval time.Duration, tick TickFunc, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		interval: interval,
		tick:     tick,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.With("component", "scheduler"),
	}
}

// Run executes the first tick immediately and then one tick per interval until ctx is
// cancelled or Stop is called. An in-flight tick always finishes before Run returns.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)
	r.logger.Info("Scheduler started", "interval", r.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Scheduler stopped (context cancelled)", "ticks", n)
			return
		case <-r.stopChan:
			r.logger.Info("Scheduler stopped", "ticks", n)
			return
		case <-timer.C:
			n++
			r.runTick(ctx, n)
			timer.Reset(r.interval)
		}
	}
}

// Stop stops accepting new ticks. It does not wait; use Done for that.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// Done is closed once Run has returned
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// runTick isolates a single tick so a panic cannot take down the loop
func (r *Runner) runTick(ctx context.Context, n uint64) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("Tick panicked",
				"tick", n,
				"error", fmt.Sprint(err),
				"stack", string(debug.Stack()),
			)
		}
	}()
	r.tick(ctx)
}
