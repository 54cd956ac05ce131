package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"COACH_API_KEY", "COACH_ENDPOINT", "COACH_DB", "COACH_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Quota.DailyLimit)
	assert.Equal(t, 5, cfg.Quota.NearLimitThreshold)
	assert.Equal(t, 10, cfg.History.Limit)
	assert.Equal(t, 7, cfg.Pack.CheckIns)
	assert.Equal(t, 5, cfg.Pack.Journals)
	assert.Zero(t, cfg.CoachTimeout())
	assert.Empty(t, cfg.Coach.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
coach:
  endpoint: https://coach.example/chat
  timeout: 15s
quota:
  daily_limit: 12
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://coach.example/chat", cfg.Coach.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.CoachTimeout())
	assert.Equal(t, 12, cfg.Quota.DailyLimit)
	assert.Equal(t, 5, cfg.Quota.NearLimitThreshold, "unset keys keep defaults")
}

func TestEnvOverridesApplyWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("COACH_API_KEY", "sk-env")
	t.Setenv("COACH_ENDPOINT", "https://env.example")
	t.Setenv("COACH_DB", "/tmp/env.db")
	t.Setenv("COACH_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Coach.APIKey)
	assert.Equal(t, "https://env.example", cfg.Coach.Endpoint)
	assert.Equal(t, "/tmp/env.db", cfg.Data.DBPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quota: [1, 2"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Coach.Endpoint = "https://coach.example"
	cfg.History.Limit = 4
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero daily limit", func(c *Config) { c.Quota.DailyLimit = 0 }},
		{"negative threshold", func(c *Config) { c.Quota.NearLimitThreshold = -1 }},
		{"zero history", func(c *Config) { c.History.Limit = 0 }},
		{"zero checkins", func(c *Config) { c.Pack.CheckIns = 0 }},
		{"bad timeout", func(c *Config) { c.Coach.Timeout = "soon" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
