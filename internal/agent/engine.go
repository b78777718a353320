package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"facewatch/internal/core"
	"facewatch/internal/scheduler"
)

// Deps are the collaborators driven by the engine
type Deps struct {
	Idle       core.IdleProvider
	Camera     core.Camera
	Classifier core.Classifier
	Locker     core.LockActuator
	Notifier   core.Notifier // optional
	Journal    core.Journal  // optional
}

// Snapshot is the externally visible engine status
type Snapshot struct {
	State             core.EngineState   `json:"state"`
	Score             int                `json:"score"`
	LockFlag          bool               `json:"lock_flag"`
	SessionLocked     bool               `json:"session_locked"`
	SelfLocked        bool               `json:"self_locked"`
	SessionMonitoring bool               `json:"session_monitoring"`
	IdleSeconds       int64              `json:"idle_seconds"`
	CooldownSeconds   float64            `json:"cooldown_remaining_seconds"`
	LastVerdict       string             `json:"last_verdict,omitempty"`
	LastSampleAt      *time.Time         `json:"last_sample_at,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Stats             core.StatsSnapshot `json:"stats"`
}

// tickView is the part of the snapshot owned by the tick worker
type tickView struct {
	state       core.EngineState
	idle        time.Duration
	lastVerdict string
	updatedAt   time.Time
}

// Engine is the tick-driven orchestrator: idle tracking, cooldown gating, camera
// sampling, scoring and lock decisions. Tick runs on a single worker; HandleSessionEvent
// runs on the session listener and only touches the SessionGate and the journal.
type Engine struct {
	deps   Deps
	config *Config
	clock  Clock
	logger *slog.Logger
	runner *scheduler.Runner

	scorer   *core.PresenceScorer
	policy   *core.LockPolicy
	idle     *core.IdleTracker
	cooldown *core.CooldownGate
	gate     *core.SessionGate
	stats    core.Statistics

	// tick worker state
	state         core.EngineState
	lastIdle      time.Duration
	lastVerdict   string
	lastHeartbeat time.Time
	lastActiveLog time.Time
	pausedSkips   uint64 // skipped ticks since the last resume, for liveness logging

	mu   sync.RWMutex
	view tickView
}

// NewEngine creates a new engine
func NewEngine(deps Deps, config *Config, clock Clock, logger *slog.Logger) *Engine {
	if deps.Notifier == nil {
		deps.Notifier = core.NopNotifier{}
	}
	if deps.Journal == nil {
		deps.Journal = core.NopJournal{}
	}

	e := &Engine{
		deps:     deps,
		config:   config,
		clock:    clock,
		logger:   logger.With("component", "engine"),
		scorer:   core.NewPresenceScorer(config.Score),
		policy:   core.NewLockPolicy(config.LockThreshold, config.RecoveryMargin),
		idle:     core.NewIdleTracker(deps.Idle, config.IdleThreshold),
		cooldown: core.NewCooldownGate(clock.Now, config.CameraCooldown),
		gate:     core.NewSessionGate(),
		state:    core.StateActive,
	}
	e.runner = scheduler.NewRunner(config.TickInterval, e.Tick, logger)
	return e
}

// Run drives ticks with a fixed delay until ctx is cancelled or Stop is called (blocking)
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("starting monitoring loop",
		"tick_interval", e.config.TickInterval,
		"idle_threshold", e.config.IdleThreshold,
		"camera_cooldown", e.config.CameraCooldown,
		"lock_threshold", e.config.LockThreshold,
		"recovery_threshold", e.policy.RecoveryThreshold(),
		"score_increment", e.config.Score.Increment,
		"score_decrement", e.config.Score.Decrement,
		"session_monitoring", e.gate.Available(),
	)

	e.runner.Run(ctx)
	e.logFinalStats()
}

// Stop signals the loop to stop after the in-flight tick
func (e *Engine) Stop() {
	e.runner.Stop()
}

// Done is closed once Run's loop has returned
func (e *Engine) Done() <-chan struct{} {
	return e.runner.Done()
}

// SetSessionMonitoring records whether a session notifier feeds the engine
func (e *Engine) SetSessionMonitoring(available bool) {
	e.gate.SetAvailable(available)
}

// Tick performs one pass of the pipeline
func (e *Engine) Tick(ctx context.Context) {
	e.stats.IncTicks()
	defer e.publish()

	if e.gate.TakeUnlock() {
		e.resetAfterUnlock()
	}

	if e.gate.IsSuspended() {
		e.state = core.StateSuspended
		e.stats.IncSkippedSuspended()
		e.pausedSkips++
		if e.config.SuspendedLogEvery > 0 && e.pausedSkips%e.config.SuspendedLogEvery == 0 {
			e.logger.Info("session locked, monitoring paused", "skipped", e.pausedSkips)
		}
		return
	}

	now := e.clock.Now()
	if e.lastHeartbeat.IsZero() || now.Sub(e.lastHeartbeat) >= e.config.HeartbeatInterval {
		e.heartbeat(ctx)
		e.lastHeartbeat = now
	}

	obs := e.idle.Observe(ctx)
	e.lastIdle = obs.Idle
	if obs.Err != nil {
		e.logger.Warn("idle time query failed, treating user as active", "error", obs.Err)
	}

	if !obs.IsIdle {
		e.handleActive(obs, now)
		return
	}

	if obs.Edge == core.EdgeBecameIdle {
		e.logger.Info("user went idle", "idle", obs.Idle)
	}

	if !e.cooldown.Permit() {
		e.state = core.StateCooldown
		return
	}

	e.state = core.StateIdleWatching
	e.sample(ctx, obs.Idle)
}

// handleActive resets presence tracking while the user is providing input
func (e *Engine) handleActive(obs core.IdleObservation, now time.Time) {
	e.state = core.StateActive

	if obs.Edge == core.EdgeBecameActive {
		e.logger.Info("user is active, camera off, score reset",
			"idle", obs.Idle,
			"score", e.config.Score.Neutral,
		)
		e.pausedSkips = 0
		e.lastActiveLog = now
	} else if now.Sub(e.lastActiveLog) >= e.config.ActiveLogInterval {
		e.logger.Debug("user active, camera off", "idle", obs.Idle)
		e.lastActiveLog = now
	}

	e.resetPresence()
}

// sample takes one camera frame and feeds it through the scorer and policy.
// The cooldown is recorded on every exit path, after the camera is released.
func (e *Engine) sample(ctx context.Context, idle time.Duration) {
	e.stats.IncCameraActivations()
	defer e.cooldown.RecordSampleTaken()
	defer func() {
		if e.state == core.StateIdleWatching {
			e.state = core.StateCooldown
		}
	}()

	e.logger.Info("opening camera", "idle", idle, "score", e.scorer.Score())
	handle, err := e.deps.Camera.Open(ctx)
	if err != nil {
		e.logger.Warn("could not open camera", "error", err)
		return
	}
	defer e.release(ctx, handle)

	if err := sleep(ctx, e.clock, e.config.CameraWarmup); err != nil {
		e.logger.Info("sample interrupted during camera warmup", "error", err)
		return
	}
	if e.gate.IsSuspended() {
		e.abortSample(ctx, "session locked during camera warmup")
		return
	}

	frame, err := handle.ReadFrame()
	if err != nil {
		e.logger.Warn("frame capture failed", "error", err)
		return
	}
	defer frame.Close()

	current, err := e.idle.IdleNow(ctx)
	if err != nil {
		e.logger.Warn("idle time query failed after capture, treating user as active", "error", err)
	}
	if !e.idle.IsIdle(current) {
		e.abortSample(ctx, fmt.Sprintf("user became active during capture (idle %s)", current))
		e.resetPresence()
		e.idle.ResetEdge()
		e.state = core.StateActive
		return
	}

	result, err := e.deps.Classifier.Classify(frame)
	if err != nil {
		e.logger.Warn("face classification failed", "error", err)
		return
	}
	switch result.Verdict {
	case core.VerdictPresent:
		e.stats.IncFacesDetected()
	case core.VerdictInconclusive:
		e.stats.IncInconclusive()
	}

	if e.gate.IsSuspended() {
		e.abortSample(ctx, "session locked during classification")
		return
	}

	prev := e.scorer.Score()
	score := e.scorer.Update(result.Verdict)
	e.lastVerdict = result.Verdict.String()
	e.logger.Info("sample classified",
		"verdict", result.Verdict,
		"faces", result.Faces,
		"brightness", fmt.Sprintf("%.1f", result.Brightness),
		"idle", current,
		"score_before", prev,
		"score", score,
	)

	e.apply(ctx, e.policy.Evaluate(score), score)
}

// apply performs the side effects of a policy decision
func (e *Engine) apply(ctx context.Context, decision core.Decision, score int) {
	switch decision {
	case core.DecisionLock:
		e.stats.IncLockEvents()
		e.logger.Warn("locking workstation",
			"score", score,
			"threshold", e.policy.Threshold(),
		)

		event := core.Event{Kind: core.EventLock, Score: score, SelfLock: true}
		// Best effort: a failed lock is not retried within the tick.
		if err := e.deps.Locker.LockWorkstation(); err != nil {
			e.logger.Error("failed to lock workstation", "error", err)
			event.Kind = core.EventLockFailed
			event.Detail = err.Error()
		}
		e.record(ctx, event)

	case core.DecisionClearFlag:
		e.logger.Info("score recovered, lock flag cleared",
			"score", score,
			"recovery_threshold", e.policy.RecoveryThreshold(),
		)
		e.record(ctx, core.Event{Kind: core.EventFlagCleared, Score: score})
	}
}

// release frees the camera and waits out the device teardown grace period
func (e *Engine) release(ctx context.Context, handle core.CameraHandle) {
	if err := handle.Release(); err != nil {
		e.logger.Warn("error releasing camera", "error", err)
	}
	_ = sleep(ctx, e.clock, e.config.ReleaseGrace)
}

func (e *Engine) abortSample(ctx context.Context, reason string) {
	e.stats.IncAbortedSamples()
	e.logger.Info("sample aborted", "reason", reason)
	e.record(ctx, core.Event{Kind: core.EventSampleAborted, Score: e.scorer.Score(), Detail: reason})
}

// resetPresence restores the neutral score, clears the lock flag and the cooldown
func (e *Engine) resetPresence() {
	e.scorer.Reset()
	e.policy.Reset()
	e.cooldown.Clear()
}

func (e *Engine) resetAfterUnlock() {
	e.resetPresence()
	e.idle.ResetEdge()
	e.pausedSkips = 0
	e.logger.Info("monitoring resumed after unlock, state reset", "score", e.scorer.Score())
}

// HandleSessionEvent applies an OS session lock or unlock. Safe to call concurrently with Tick.
func (e *Engine) HandleSessionEvent(ctx context.Context, ev core.SessionEvent) {
	switch ev.Kind {
	case core.SessionLocked:
		selfLock, changed := e.gate.OnExternalLock(e.policy.Locked())
		if !changed {
			e.logger.Debug("duplicate session lock ignored", "source", ev.Source)
			return
		}
		e.logger.Info("session locked, pausing monitoring",
			"source", ev.Source,
			"self_lock", selfLock,
		)
		score := e.scorer.Score()
		if e.gate.UnlockPending() {
			score = e.config.Score.Neutral
		}
		e.record(ctx, core.Event{
			Kind:     core.EventSessionLocked,
			Score:    score,
			SelfLock: selfLock,
			Detail:   ev.Source,
		})

	case core.SessionUnlocked:
		selfLock, changed := e.gate.OnExternalUnlock()
		if !changed {
			e.logger.Debug("duplicate session unlock ignored", "source", ev.Source)
			return
		}
		e.logger.Info("session unlocked, resuming monitoring",
			"source", ev.Source,
			"was_self_lock", selfLock,
		)
		e.record(ctx, core.Event{
			Kind:     core.EventSessionUnlocked,
			Score:    e.config.Score.Neutral,
			SelfLock: selfLock,
			Detail:   ev.Source,
		})

	default:
		e.logger.Warn("unknown session event", "kind", ev.Kind)
	}
}

// ListenSessions forwards session events to HandleSessionEvent until ctx is done or
// events is closed (blocking)
func (e *Engine) ListenSessions(ctx context.Context, events <-chan core.SessionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.HandleSessionEvent(ctx, ev)
		}
	}
}

// record journals an event and forwards it to the notifier; failures are logged only
func (e *Engine) record(ctx context.Context, event core.Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.clock.Now()
	}
	if err := e.deps.Journal.AppendEvent(ctx, &event); err != nil {
		e.logger.Warn("failed to journal event", "kind", event.Kind, "error", err)
	}
	if err := e.deps.Notifier.Notify(ctx, event); err != nil {
		e.logger.Warn("failed to deliver notification", "kind", event.Kind, "error", err)
	}
}

func (e *Engine) heartbeat(ctx context.Context) {
	s := e.stats.Snapshot()
	e.logger.Info("heartbeat",
		"ticks", s.Ticks,
		"camera_activations", s.CameraActivations,
		"faces_detected", s.FacesDetected,
		"detection_rate", fmt.Sprintf("%.1f%%", s.DetectionRate()),
		"inconclusive", s.Inconclusive,
		"lock_events", s.LockEvents,
		"skipped_suspended", s.SkippedSuspended,
		"score", e.scorer.Score(),
		"session_locked", e.gate.IsSuspended(),
		"lock_flag", e.policy.Locked(),
		"state", e.state,
	)
	e.record(ctx, core.Event{
		Kind:  core.EventHeartbeat,
		Score: e.scorer.Score(),
		Detail: fmt.Sprintf("ticks=%d activations=%d faces=%d locks=%d skipped=%d",
			s.Ticks, s.CameraActivations, s.FacesDetected, s.LockEvents, s.SkippedSuspended),
	})
}

func (e *Engine) logFinalStats() {
	s := e.stats.Snapshot()
	e.logger.Info("final statistics",
		"ticks", s.Ticks,
		"camera_activations", s.CameraActivations,
		"faces_detected", s.FacesDetected,
		"detection_rate", fmt.Sprintf("%.1f%%", s.DetectionRate()),
		"lock_events", s.LockEvents,
		"skipped_suspended", s.SkippedSuspended,
		"aborted_samples", s.AbortedSamples,
	)
}

// publish copies tick-owned state for concurrent readers
func (e *Engine) publish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view = tickView{
		state:       e.state,
		idle:        e.lastIdle,
		lastVerdict: e.lastVerdict,
		updatedAt:   e.clock.Now(),
	}
}

// Snapshot returns the current engine status. Safe for concurrent use.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	view := e.view
	e.mu.RUnlock()

	snap := Snapshot{
		State:             view.state,
		Score:             e.scorer.Score(),
		LockFlag:          e.policy.Locked(),
		SessionLocked:     e.gate.IsSuspended(),
		SelfLocked:        e.gate.SelfLocked(),
		SessionMonitoring: e.gate.Available(),
		IdleSeconds:       int64(view.idle / time.Second),
		CooldownSeconds:   e.cooldown.Remaining().Seconds(),
		LastVerdict:       view.lastVerdict,
		UpdatedAt:         view.updatedAt,
		Stats:             e.stats.Snapshot(),
	}
	if e.gate.UnlockPending() {
		// the tick worker has not applied the unlock reset yet
		snap.Score = e.config.Score.Neutral
		snap.LockFlag = false
	}
	if snap.SessionLocked {
		snap.State = core.StateSuspended
	}
	if last := e.cooldown.LastSample(); !last.IsZero() {
		snap.LastSampleAt = &last
	}
	return snap
}

// Stats returns a copy of the statistics counters
func (e *Engine) Stats() core.StatsSnapshot {
	return e.stats.Snapshot()
}
