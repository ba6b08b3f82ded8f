// Package config loads the daemon configuration from an optional YAML file
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BridgeConfig holds connection and dispatch settings.
type BridgeConfig struct {
	// URL is the WebSocket endpoint. The WEBSOCKET_URL environment
	// variable takes precedence; when both are empty the bridge is
	// permanently disabled.
	URL string `yaml:"url"`
	// TickInterval is how often queued inbound work is drained.
	TickInterval string `yaml:"tick_interval"`
	// JournalPath enables the SQLite traffic journal when non-empty.
	JournalPath string `yaml:"journal_path"`
	// GeorgeCommand is the interpreter invoked by execute_george; the
	// script is appended as the final argument.
	GeorgeCommand []string `yaml:"george_command"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Config is the top-level daemon configuration.
type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			TickInterval:  "50ms",
			GeorgeCommand: []string{"tvpaint-george"},
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
	}
}

// Load reads the configuration from path, falling back to defaults when
// path is empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the environment win over the file. WEBSOCKET_URL overrides
// even when set to empty: an empty endpoint means "disabled".
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("WEBSOCKET_URL"); ok {
		c.Bridge.URL = v
	}
	if v := os.Getenv("TVBRIDGE_LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
}

// TickDuration parses Bridge.TickInterval, falling back to 50ms.
func (c *Config) TickDuration() time.Duration {
	d, err := time.ParseDuration(c.Bridge.TickInterval)
	if err != nil || d <= 0 {
		return 50 * time.Millisecond
	}
	return d
}
