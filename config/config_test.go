package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewatch/internal/core"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	engine := cfg.Engine.Agent()
	assert.Equal(t, 5*time.Second, engine.TickInterval)
	assert.Equal(t, 7*time.Second, engine.IdleThreshold)
	assert.Equal(t, 8*time.Second, engine.CameraCooldown)
	assert.Equal(t, 50, engine.Score.Neutral)
	assert.Equal(t, 8, engine.Score.Increment)
	assert.Equal(t, 12, engine.Score.Decrement)
	assert.Equal(t, 20, engine.LockThreshold)
	assert.Equal(t, 10, engine.RecoveryMargin)
	assert.Equal(t, "127.0.0.1:7465", cfg.API.Listen)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero tick interval", func(c *Config) { c.Engine.TickInterval = 0 }},
		{"negative cooldown", func(c *Config) { c.Engine.CameraCooldown = Duration(-time.Second) }},
		{"inverted score bounds", func(c *Config) { c.Engine.ScoreMin, c.Engine.ScoreMax = 100, 0 }},
		{"start outside bounds", func(c *Config) { c.Engine.ScoreStart = 150 }},
		{"threshold outside bounds", func(c *Config) { c.Engine.LockThreshold = 0 }},
		{"zero decrement", func(c *Config) { c.Engine.ScoreDecrement = 0 }},
		{"negative camera device", func(c *Config) { c.Camera.Device = -1 }},
		{"missing cascade", func(c *Config) { c.Classifier.CascadePath = "" }},
		{"scale factor too small", func(c *Config) { c.Classifier.ScaleFactor = 1 }},
		{"zero face size", func(c *Config) { c.Classifier.MinFaceSize = 0 }},
		{"brightness above range", func(c *Config) { c.Classifier.MinBrightness = 300 }},
		{"missing storage path", func(c *Config) { c.Storage.Path = "" }},
		{"telegram without token", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatIDs = []int64{1}
		}},
		{"telegram without chats", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.Token = "token"
		}},
		{"telegram bad timezone", func(c *Config) {
			c.Telegram = TelegramConfig{Enabled: true, Token: "token", ChatIDs: []int64{1}, Timezone: "Mars/Olympus"}
		}},
		{"unknown event kind", func(c *Config) { c.Telegram.Kinds = []string{"coffee_break"} }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Engine, cfg.Engine)
}

func TestLoad_Formats(t *testing.T) {
	files := map[string]string{
		"config.toml": `
[engine]
tick_interval = "2s"
lock_threshold = 25

[api]
listen = ""

[telegram]
enabled = true
token = "toml-token"
chat_ids = [42]
kinds = ["lock", "session_locked"]
`,
		"config.json": `{
  "engine": {"tick_interval": "2s", "lock_threshold": 25},
  "api": {"listen": ""},
  "telegram": {"enabled": true, "token": "toml-token", "chat_ids": [42], "kinds": ["lock", "session_locked"]}
}`,
		"config.yaml": `
engine:
  tick_interval: 2s
  lock_threshold: 25
api:
  listen: ""
telegram:
  enabled: true
  token: toml-token
  chat_ids: [42]
  kinds: [lock, session_locked]
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			cfg, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, 2*time.Second, cfg.Engine.TickInterval.Std())
			assert.Equal(t, 25, cfg.Engine.LockThreshold)
			assert.Equal(t, 7*time.Second, cfg.Engine.IdleThreshold.Std(), "unset keys keep defaults")
			assert.Empty(t, cfg.API.Listen)
			assert.Equal(t, []int64{42}, cfg.Telegram.ChatIDs)
			assert.Equal(t, []core.EventKind{core.EventLock, core.EventSessionLocked}, cfg.Telegram.EventKinds())
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[engine\ntick"), 0o600))
	_, err := Load(bad)
	assert.Error(t, err)

	duration := filepath.Join(dir, "duration.json")
	require.NoError(t, os.WriteFile(duration, []byte(`{"engine": {"tick_interval": "soon"}}`), 0o600))
	_, err = Load(duration)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("engine:\n  score_decrement: 0\n"), 0o600))
	_, err = Load(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	unknown := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(unknown, []byte("x=1"), 0o600))
	_, err = Load(unknown)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("FACEWATCH_LOG_LEVEL", "debug")
	t.Setenv("FACEWATCH_DB_PATH", "/custom/events.db")
	t.Setenv("FACEWATCH_API_LISTEN", "127.0.0.1:9000")
	t.Setenv("FACEWATCH_API_TOKEN", "env-token")
	t.Setenv("FACEWATCH_TELEGRAM_TOKEN", "env-bot-token")
	t.Setenv("FACEWATCH_TELEGRAM_CHAT_ID", "1, 2,bogus")
	t.Setenv("FACEWATCH_CAMERA_DEVICE", "2")
	t.Setenv("FACEWATCH_CASCADE_PATH", "/opt/cascade.xml")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/custom/events.db", cfg.Storage.Path)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
	assert.Equal(t, "env-token", cfg.API.Token)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "env-bot-token", cfg.Telegram.Token)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.ChatIDs)
	assert.Equal(t, 2, cfg.Camera.Device)
	assert.Equal(t, "/opt/cascade.xml", cfg.Classifier.CascadePath)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides_MalformedIntKeepsValue(t *testing.T) {
	t.Setenv("FACEWATCH_CAMERA_DEVICE", "front")

	cfg := Default()
	cfg.Camera.Device = 3
	cfg.ApplyEnvOverrides()

	assert.Equal(t, 3, cfg.Camera.Device)
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("ninety")))
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"info\"\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	errs, err := Watch(ctx, path, func(c *Config) { changes <- c })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o600))

	select {
	case cfg := <-changes:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case err := <-errs:
		t.Fatalf("reload failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestWatch_InvalidReloadReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"info\"\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	errs, err := Watch(ctx, path, func(c *Config) { changes <- c })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o600))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrInvalidConfig)
	case <-changes:
		t.Fatal("invalid config must not be applied")
	case <-time.After(5 * time.Second):
		t.Fatal("reload error not reported")
	}
}
