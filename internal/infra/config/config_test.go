package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("WEBSOCKET_URL", "")
	os.Unsetenv("WEBSOCKET_URL")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Bridge.URL)
	assert.Equal(t, 50*time.Millisecond, cfg.TickDuration())
	assert.Equal(t, []string{"tvpaint-george"}, cfg.Bridge.GeorgeCommand)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("WEBSOCKET_URL", "")
	os.Unsetenv("WEBSOCKET_URL")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bridge:
  url: ws://localhost:8099/ws
  tick_interval: 100ms
  journal_path: /tmp/traffic.db
logger:
  level: debug
  format: json
tracer:
  enabled: true
  exporter: stdout
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8099/ws", cfg.Bridge.URL)
	assert.Equal(t, 100*time.Millisecond, cfg.TickDuration())
	assert.Equal(t, "/tmp/traffic.db", cfg.Bridge.JournalPath)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Tracer.Enabled)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge:\n  url: ws://from-file/ws\n"), 0600))

	t.Setenv("WEBSOCKET_URL", "ws://from-env/ws")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://from-env/ws", cfg.Bridge.URL)

	// An explicitly empty variable disables the bridge, beating the file.
	t.Setenv("WEBSOCKET_URL", "")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Bridge.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestTickDurationFallback(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 50*time.Millisecond, cfg.TickDuration())

	cfg.Bridge.TickInterval = "nonsense"
	assert.Equal(t, 50*time.Millisecond, cfg.TickDuration())
}
