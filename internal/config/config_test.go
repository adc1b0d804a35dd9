package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "FREQDIRS_STATE_DIR", "FREQDIRS_LOG_LEVEL", "FREQDIRS_LOG_FILE", "FREQDIRS_LOG_PRETTY", "FREQDIRS_METRICS_FILE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.StateDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Empty(t, cfg.Metrics.File)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FREQDIRS_STATE_DIR", "/tmp/fd-state")
	t.Setenv("FREQDIRS_LOG_LEVEL", "debug")
	t.Setenv("FREQDIRS_LOG_FILE", "/tmp/fd.log")
	t.Setenv("FREQDIRS_LOG_PRETTY", "false")
	t.Setenv("FREQDIRS_METRICS_FILE", "/tmp/fd.prom")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/fd-state", cfg.StateDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/fd.log", cfg.Log.File)
	assert.False(t, cfg.Log.Pretty)
	assert.Equal(t, "/tmp/fd.prom", cfg.Metrics.File)
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("FREQDIRS_LOG_PRETTY", "sometimes")

	_, err := Load()
	assert.Error(t, err)
}

func TestResolveStateDir(t *testing.T) {
	cfg := Config{StateDir: "/explicit"}
	dir, err := cfg.ResolveStateDir()
	require.NoError(t, err)
	assert.Equal(t, "/explicit", dir)

	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	cfg = Config{}
	dir, err = cfg.ResolveStateDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg/state", "freqdirs"), dir)
}

func TestDefaultStateDirFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/tester")

	dir, err := DefaultStateDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".local", "state", "freqdirs"), dir)
}
