package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds all freqdirs configuration. Values come from the environment
// and may be overridden by command-line flags.
type Config struct {
	// StateDir is the directory holding the database. Empty means DefaultStateDir.
	StateDir string `env:"FREQDIRS_STATE_DIR"`

	Log     LogConfig     `envPrefix:"FREQDIRS_LOG_"`
	Metrics MetricsConfig `envPrefix:"FREQDIRS_METRICS_"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"warn"` // debug, info, warn, error
	File   string `env:"FILE"`
	Pretty bool   `env:"PRETTY" envDefault:"true"`
}

type MetricsConfig struct {
	// File receives Prometheus text-format metrics after each command.
	File string `env:"FILE"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "warn",
			Pretty: true,
		},
	}
}

// Load returns the defaults overlaid with any FREQDIRS_* environment variables.
func Load() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DefaultStateDir returns $XDG_STATE_HOME/freqdirs, falling back to
// ~/.local/state/freqdirs.
func DefaultStateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "freqdirs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", "freqdirs"), nil
}

// ResolveStateDir returns StateDir, or DefaultStateDir when it is unset.
func (c *Config) ResolveStateDir() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	return DefaultStateDir()
}
