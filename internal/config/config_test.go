package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2112, cfg.Server.MetricsPort)
	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.Equal(t, 16, cfg.Engine.DefaultMeetingStartHour)
	assert.Equal(t, 17, cfg.Engine.DefaultMeetingEndHour)
	assert.Equal(t, 7*24*time.Hour, cfg.Engine.StaleAfter)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 25, cfg.Postgres.MaxConnections)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ORCH_SERVER_PORT", "9191")
	t.Setenv("ORCH_ENGINE_MAX_RETRIES", "5")
	t.Setenv("ORCH_POSTGRES_HOST", "db.internal")
	t.Setenv("ORCH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Engine.MaxRetries)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
log_level: warn
server:
  port: 7070
engine:
  default_meeting_start_hour: 14
  default_meeting_end_hour: 15
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 14, cfg.Engine.DefaultMeetingStartHour)
	assert.Equal(t, 15, cfg.Engine.DefaultMeetingEndHour)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2112, cfg.Server.MetricsPort)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}
