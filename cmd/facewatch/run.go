package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"facewatch/config"
	"facewatch/internal/agent"
	"facewatch/internal/api"
	"facewatch/internal/core"
	"facewatch/internal/idle"
	"facewatch/internal/logging"
	"facewatch/internal/notify"
	"facewatch/internal/notify/logsink"
	"facewatch/internal/notify/telegram"
	"facewatch/internal/session"
	"facewatch/internal/storage/sqlite"
	"facewatch/internal/vision"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the auto-lock daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return runDaemon(cfg, opts, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log lock decisions instead of locking the session")
	return cmd
}

func runDaemon(cfg *config.Config, opts *rootOptions, dryRun bool) error {
	logger, level, logCloser, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	mainLogger := logger.With("component", "main")
	mainLogger.Info("Starting facewatch",
		"version", version,
		"config", opts.configPath,
		"dry_run", dryRun,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Required collaborators: any failure here aborts startup
	idleProvider, err := idle.NewProvider(ctx, logger)
	if err != nil {
		mainLogger.Error("Idle time source unavailable", "error", err)
		return err
	}
	if c, ok := idleProvider.(io.Closer); ok {
		defer c.Close()
	}

	camera := vision.NewCamera(cameraConfig(cfg.Camera), logger)
	if err := vision.Probe(ctx, camera, logger); err != nil {
		mainLogger.Error("Camera probe failed", "device", cfg.Camera.Device, "error", err)
		return err
	}
	// the first sample may reopen the device right away
	time.Sleep(cfg.Engine.ReleaseGrace.Std())

	classifier, err := vision.NewCascadeClassifier(classifierConfig(cfg.Classifier), logger)
	if err != nil {
		mainLogger.Error("Face classifier unavailable", "cascade", cfg.Classifier.CascadePath, "error", err)
		return err
	}
	defer classifier.Close()

	var platform agent.Platform
	if dryRun {
		platform = agent.NewDryRunPlatform(logger)
	} else {
		platform, err = agent.NewPlatform(logger)
		if err != nil {
			mainLogger.Error("Lock actuator unavailable", "error", err)
			return err
		}
	}

	store, err := openStorage(ctx, cfg.Storage, mainLogger)
	if err != nil {
		mainLogger.Error("Event journal unavailable", "path", cfg.Storage.Path, "error", err)
		return err
	}
	defer store.Close()

	sinks, err := buildSinks(cfg.Telegram, logger)
	if err != nil {
		mainLogger.Error("Notification setup failed", "error", err)
		return err
	}
	mainLogger.Info("Notification sinks registered", "sinks", sinks.List())

	engine := agent.NewEngine(agent.Deps{
		Idle:       idleProvider,
		Camera:     logging.NewCameraLogger(camera, logger),
		Classifier: logging.NewClassifierLogger(classifier, logger),
		Locker:     logging.NewLockActuatorLogger(platform, logger),
		Notifier:   sinks,
		Journal:    store,
	}, cfg.Engine.Agent(), agent.RealClock{}, logger)

	// Optional: without session events the engine runs degraded
	startSessionMonitoring(ctx, engine, logger)

	serverErrors := make(chan error, 1)
	server := startStatusServer(cfg.API, engine, store, logger, serverErrors)

	watchConfig(ctx, opts, level, mainLogger)

	engineDone := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(engineDone)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		mainLogger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrors:
		mainLogger.Error("Status server failed", "error", err)
		runErr = fmt.Errorf("status server: %w", err)
	}

	// let an in-flight tick finish before collaborators see cancellation
	engine.Stop()
	select {
	case <-engineDone:
	case <-time.After(shutdownTimeout):
		mainLogger.Warn("Engine did not stop in time, cancelling")
	}
	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLogger.Warn("Status server shutdown error", "error", err)
		}
	}

	<-engineDone
	mainLogger.Info("Shutdown complete")
	return runErr
}

func cameraConfig(c config.CameraConfig) vision.CameraConfig {
	return vision.CameraConfig{
		DeviceID: c.Device,
		Width:    c.Width,
		Height:   c.Height,
	}
}

func classifierConfig(c config.ClassifierConfig) vision.ClassifierConfig {
	return vision.ClassifierConfig{
		CascadePath:   c.CascadePath,
		MinBrightness: c.MinBrightness,
		MinFaceSize:   c.MinFaceSize,
		ScaleFactor:   c.ScaleFactor,
		MinNeighbors:  c.MinNeighbors,
	}
}

// openStorage opens the journal and drops events older than the retention window
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*sqlite.SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	store, err := sqlite.New(cfg.Path)
	if err != nil {
		return nil, err
	}

	if cfg.Retention > 0 {
		cutoff := time.Now().Add(-cfg.Retention.Std())
		pruned, err := store.PruneEvents(ctx, cutoff)
		if err != nil {
			logger.Warn("Failed to prune old events", "error", err)
		} else if pruned > 0 {
			logger.Info("Pruned old events", "count", pruned, "before", cutoff)
		}
	}
	return store, nil
}

// buildSinks registers the log sink and, when enabled, the Telegram sink
func buildSinks(cfg config.TelegramConfig, logger *slog.Logger) (*notify.Registry, error) {
	registry := notify.NewRegistry(cfg.EventKinds()...)

	if err := registry.Register(logsink.New(logger)); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		return registry, nil
	}

	hostname, _ := os.Hostname()
	sink, err := telegram.New(telegram.Config{
		Token:    cfg.Token,
		ChatIDs:  cfg.ChatIDs,
		Timezone: cfg.Timezone,
		Hostname: hostname,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	if err := registry.Register(sink); err != nil {
		return nil, err
	}
	return registry, nil
}

func startSessionMonitoring(ctx context.Context, engine *agent.Engine, logger *slog.Logger) {
	log := logger.With("component", "main")

	notifier, err := session.New(logger)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotifierUnsupported) {
			log.Warn("Session lock notifications unsupported, running without lock attribution")
		} else {
			log.Warn("Session lock notifications unavailable, running without lock attribution", "error", err)
		}
		engine.SetSessionMonitoring(false)
		return
	}
	engine.SetSessionMonitoring(true)

	events := make(chan core.SessionEvent, 8)
	go func() {
		defer notifier.Close()
		if err := notifier.Run(ctx, events); err != nil && ctx.Err() == nil {
			log.Warn("Session notifier stopped, running without lock attribution", "error", err)
			engine.SetSessionMonitoring(false)
		}
	}()
	go engine.ListenSessions(ctx, events)
}

// startStatusServer serves the local status API; an empty listen address disables it
func startStatusServer(cfg config.APIConfig, engine *agent.Engine, store *sqlite.SQLiteStorage, logger *slog.Logger, serverErrors chan<- error) *http.Server {
	log := logger.With("component", "main")
	if cfg.Listen == "" {
		log.Info("Status API disabled")
		return nil
	}

	router := api.NewRouter(api.RouterConfig{
		Engine:  engine,
		Storage: store,
		Token:   cfg.Token,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting status API", "addr", cfg.Listen, "auth", cfg.Token != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	return server
}

// watchConfig applies log level changes from the config file while running.
// Engine tunables stay fixed for the process lifetime.
func watchConfig(ctx context.Context, opts *rootOptions, level *slog.LevelVar, logger *slog.Logger) {
	if _, err := os.Stat(opts.configPath); err != nil {
		return
	}

	errs, err := config.Watch(ctx, opts.configPath, func(next *config.Config) {
		opts.override(next)
		level.Set(logging.ParseLevel(next.Logging.Level))
		logger.Info("Config reloaded", "log_level", next.Logging.Level)
	})
	if err != nil {
		logger.Warn("Config watch unavailable", "error", err)
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				logger.Warn("Config reload rejected", "error", err)
			}
		}
	}()
}
