// Package config loads the facewatch daemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"facewatch/internal/agent"
	"facewatch/internal/core"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = core.ErrInvalidConfig
)

// Config represents the daemon configuration
type Config struct {
	Engine     EngineConfig     `json:"engine" toml:"engine" yaml:"engine"`
	Camera     CameraConfig     `json:"camera" toml:"camera" yaml:"camera"`
	Classifier ClassifierConfig `json:"classifier" toml:"classifier" yaml:"classifier"`
	Storage    StorageConfig    `json:"storage" toml:"storage" yaml:"storage"`
	API        APIConfig        `json:"api" toml:"api" yaml:"api"`
	Telegram   TelegramConfig   `json:"telegram" toml:"telegram" yaml:"telegram"`
	Logging    LoggingConfig    `json:"logging" toml:"logging" yaml:"logging"`
}

// EngineConfig contains the tick loop, scoring and lock policy tunables
type EngineConfig struct {
	TickInterval      Duration `json:"tick_interval" toml:"tick_interval" yaml:"tick_interval"`
	IdleThreshold     Duration `json:"idle_threshold" toml:"idle_threshold" yaml:"idle_threshold"`
	CameraCooldown    Duration `json:"camera_cooldown" toml:"camera_cooldown" yaml:"camera_cooldown"`
	CameraWarmup      Duration `json:"camera_warmup" toml:"camera_warmup" yaml:"camera_warmup"`
	ReleaseGrace      Duration `json:"release_grace" toml:"release_grace" yaml:"release_grace"`
	HeartbeatInterval Duration `json:"heartbeat_interval" toml:"heartbeat_interval" yaml:"heartbeat_interval"`
	ActiveLogInterval Duration `json:"active_log_interval" toml:"active_log_interval" yaml:"active_log_interval"`
	SuspendedLogEvery uint64   `json:"suspended_log_every" toml:"suspended_log_every" yaml:"suspended_log_every"`
	ScoreMin          int      `json:"score_min" toml:"score_min" yaml:"score_min"`
	ScoreMax          int      `json:"score_max" toml:"score_max" yaml:"score_max"`
	ScoreStart        int      `json:"score_start" toml:"score_start" yaml:"score_start"`
	ScoreIncrement    int      `json:"score_increment" toml:"score_increment" yaml:"score_increment"`
	ScoreDecrement    int      `json:"score_decrement" toml:"score_decrement" yaml:"score_decrement"`
	LockThreshold     int      `json:"lock_threshold" toml:"lock_threshold" yaml:"lock_threshold"`
	RecoveryMargin    int      `json:"recovery_margin" toml:"recovery_margin" yaml:"recovery_margin"`
}

// CameraConfig selects the capture device
type CameraConfig struct {
	Device int `json:"device" toml:"device" yaml:"device"`
	Width  int `json:"width" toml:"width" yaml:"width"`
	Height int `json:"height" toml:"height" yaml:"height"`
}

// ClassifierConfig contains face detector settings
type ClassifierConfig struct {
	CascadePath   string  `json:"cascade_path" toml:"cascade_path" yaml:"cascade_path"`
	MinBrightness float64 `json:"min_brightness" toml:"min_brightness" yaml:"min_brightness"`
	MinFaceSize   int     `json:"min_face_size" toml:"min_face_size" yaml:"min_face_size"`
	ScaleFactor   float64 `json:"scale_factor" toml:"scale_factor" yaml:"scale_factor"`
	MinNeighbors  int     `json:"min_neighbors" toml:"min_neighbors" yaml:"min_neighbors"`
}

// StorageConfig contains event journal settings
type StorageConfig struct {
	Path      string   `json:"path" toml:"path" yaml:"path"`
	Retention Duration `json:"retention" toml:"retention" yaml:"retention"` // 0 keeps everything
}

// APIConfig contains local status server settings
type APIConfig struct {
	Listen string `json:"listen" toml:"listen" yaml:"listen"` // empty disables the server
	Token  string `json:"token" toml:"token" yaml:"token"`
}

// TelegramConfig contains Telegram notification settings
type TelegramConfig struct {
	Enabled  bool     `json:"enabled" toml:"enabled" yaml:"enabled"`
	Token    string   `json:"token" toml:"token" yaml:"token"`
	ChatIDs  []int64  `json:"chat_ids" toml:"chat_ids" yaml:"chat_ids"`
	Timezone string   `json:"timezone" toml:"timezone" yaml:"timezone"`
	Kinds    []string `json:"kinds" toml:"kinds" yaml:"kinds"` // empty forwards every kind
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Format string `json:"format" toml:"format" yaml:"format"` // "json" or "text"
	Level  string `json:"level" toml:"level" yaml:"level"`
	File   string `json:"file" toml:"file" yaml:"file"` // empty logs to stdout only
}

// Duration is a time.Duration written as "5s", "500ms" or "72h" in config files
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	engine := agent.DefaultConfig()
	classifier := ClassifierConfig{
		CascadePath:   "haarcascade_frontalface_alt.xml",
		MinBrightness: 30,
		MinFaceSize:   40,
		ScaleFactor:   1.1,
		MinNeighbors:  5,
	}

	return &Config{
		Engine: EngineConfig{
			TickInterval:      Duration(engine.TickInterval),
			IdleThreshold:     Duration(engine.IdleThreshold),
			CameraCooldown:    Duration(engine.CameraCooldown),
			CameraWarmup:      Duration(engine.CameraWarmup),
			ReleaseGrace:      Duration(engine.ReleaseGrace),
			HeartbeatInterval: Duration(engine.HeartbeatInterval),
			ActiveLogInterval: Duration(engine.ActiveLogInterval),
			SuspendedLogEvery: engine.SuspendedLogEvery,
			ScoreMin:          engine.Score.Min,
			ScoreMax:          engine.Score.Max,
			ScoreStart:        engine.Score.Neutral,
			ScoreIncrement:    engine.Score.Increment,
			ScoreDecrement:    engine.Score.Decrement,
			LockThreshold:     engine.LockThreshold,
			RecoveryMargin:    engine.RecoveryMargin,
		},
		Classifier: classifier,
		Storage: StorageConfig{
			Path:      filepath.Join(DataDir(), "events.db"),
			Retention: Duration(30 * 24 * time.Hour),
		},
		API: APIConfig{
			Listen: "127.0.0.1:7465",
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// DataDir is the per-user directory holding the config file and the journal
func DataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "facewatch")
}

// DefaultPath is the config file looked up when --config is not given
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Agent returns the engine view of the configuration
func (e EngineConfig) Agent() *agent.Config {
	return &agent.Config{
		TickInterval:      e.TickInterval.Std(),
		IdleThreshold:     e.IdleThreshold.Std(),
		CameraCooldown:    e.CameraCooldown.Std(),
		CameraWarmup:      e.CameraWarmup.Std(),
		ReleaseGrace:      e.ReleaseGrace.Std(),
		HeartbeatInterval: e.HeartbeatInterval.Std(),
		ActiveLogInterval: e.ActiveLogInterval.Std(),
		SuspendedLogEvery: e.SuspendedLogEvery,
		Score: core.ScoreConfig{
			Min:       e.ScoreMin,
			Max:       e.ScoreMax,
			Neutral:   e.ScoreStart,
			Increment: e.ScoreIncrement,
			Decrement: e.ScoreDecrement,
		},
		LockThreshold:  e.LockThreshold,
		RecoveryMargin: e.RecoveryMargin,
	}
}

// EventKinds returns the notification filter, nil when every kind is forwarded
func (t TelegramConfig) EventKinds() []core.EventKind {
	if len(t.Kinds) == 0 {
		return nil
	}
	kinds := make([]core.EventKind, 0, len(t.Kinds))
	for _, k := range t.Kinds {
		kinds = append(kinds, core.EventKind(k))
	}
	return kinds
}

var knownKinds = map[core.EventKind]bool{
	core.EventLock:            true,
	core.EventLockFailed:      true,
	core.EventFlagCleared:     true,
	core.EventSessionLocked:   true,
	core.EventSessionUnlocked: true,
	core.EventSampleAborted:   true,
	core.EventHeartbeat:       true,
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Engine.Agent().Validate(); err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return fmt.Errorf("engine: %w", err)
		}
		return fmt.Errorf("%w: engine: %w", ErrInvalidConfig, err)
	}

	if c.Camera.Device < 0 {
		return fmt.Errorf("%w: camera device must not be negative", ErrInvalidConfig)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("%w: camera size must not be negative", ErrInvalidConfig)
	}

	if c.Classifier.CascadePath == "" {
		return fmt.Errorf("%w: classifier cascade path is required", ErrInvalidConfig)
	}
	if c.Classifier.MinBrightness < 0 || c.Classifier.MinBrightness > 255 {
		return fmt.Errorf("%w: classifier min brightness must be within [0, 255]", ErrInvalidConfig)
	}
	if c.Classifier.MinFaceSize <= 0 {
		return fmt.Errorf("%w: classifier min face size must be positive", ErrInvalidConfig)
	}
	if c.Classifier.ScaleFactor <= 1 {
		return fmt.Errorf("%w: classifier scale factor must be greater than 1", ErrInvalidConfig)
	}
	if c.Classifier.MinNeighbors < 0 {
		return fmt.Errorf("%w: classifier min neighbors must not be negative", ErrInvalidConfig)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage path is required", ErrInvalidConfig)
	}
	if c.Storage.Retention < 0 {
		return fmt.Errorf("%w: storage retention must not be negative", ErrInvalidConfig)
	}

	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			return fmt.Errorf("%w: telegram token is required", ErrInvalidConfig)
		}
		if len(c.Telegram.ChatIDs) == 0 {
			return fmt.Errorf("%w: at least one telegram chat id is required", ErrInvalidConfig)
		}
		if c.Telegram.Timezone != "" {
			if _, err := time.LoadLocation(c.Telegram.Timezone); err != nil {
				return fmt.Errorf("%w: telegram timezone: %w", ErrInvalidConfig, err)
			}
		}
	}
	for _, k := range c.Telegram.Kinds {
		if !knownKinds[core.EventKind(k)] {
			return fmt.Errorf("%w: unknown event kind %q", ErrInvalidConfig, k)
		}
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: logging format must be json or text", ErrInvalidConfig)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown logging level %q", ErrInvalidConfig, c.Logging.Level)
	}

	return nil
}

// ApplyEnvOverrides applies FACEWATCH_* environment variables on top of the loaded values
func (c *Config) ApplyEnvOverrides() {
	c.Logging.Level = getEnv("FACEWATCH_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("FACEWATCH_LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getEnv("FACEWATCH_LOG_FILE", c.Logging.File)
	c.Storage.Path = getEnv("FACEWATCH_DB_PATH", c.Storage.Path)
	c.API.Listen = getEnv("FACEWATCH_API_LISTEN", c.API.Listen)
	c.API.Token = getEnv("FACEWATCH_API_TOKEN", c.API.Token)
	c.Camera.Device = getEnvInt("FACEWATCH_CAMERA_DEVICE", c.Camera.Device)
	c.Classifier.CascadePath = getEnv("FACEWATCH_CASCADE_PATH", c.Classifier.CascadePath)

	if token := os.Getenv("FACEWATCH_TELEGRAM_TOKEN"); token != "" {
		c.Telegram.Token = token
		c.Telegram.Enabled = getEnvBool("FACEWATCH_TELEGRAM_ENABLED", true)
	} else {
		c.Telegram.Enabled = getEnvBool("FACEWATCH_TELEGRAM_ENABLED", c.Telegram.Enabled)
	}
	if ids := getEnvInt64s("FACEWATCH_TELEGRAM_CHAT_ID"); len(ids) > 0 {
		c.Telegram.ChatIDs = ids
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt64s parses a comma separated list, skipping malformed entries
func getEnvInt64s(key string) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
