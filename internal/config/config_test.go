package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: "+filepath.Join(dir, "db", "test.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "09:00", cfg.Schedule.StartTime)
	assert.Equal(t, "17:00", cfg.Schedule.EndTime)
	assert.Equal(t, 60, cfg.Schedule.SlotDuration)
	assert.Equal(t, 14, cfg.Schedule.WindowDays)
	assert.Equal(t, "local", cfg.Availability.Mode)
	assert.Equal(t, "db", cfg.Submission.Mode)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.False(t, cfg.IsDevelopment())

	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("BOOKINGDESK_TEST_TOKEN", "secret-token")
	dir := t.TempDir()
	path := writeConfig(t, `
app:
  environment: development
  timezone: UTC
database:
  path: `+filepath.Join(dir, "x.db")+`
telegram:
  enabled: true
  bot_token: ${BOOKINGDESK_TEST_TOKEN}
  chat_ids: [42]
availability:
  latency_ms: 500
  fetch_timeout_seconds: 3
submission:
  mode: mock
  mock_delay_ms: 1000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{42}, cfg.Telegram.ChatIDs)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 500*time.Millisecond, cfg.FetchLatency())
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout())
	assert.Equal(t, time.Second, cfg.MockDelay())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: "+filepath.Join(dir, "env.db")+"\n")
	t.Setenv(EnvPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "env.db"), cfg.Database.Path)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}
