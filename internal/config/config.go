// Package config loads coach settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/coach-context/internal/history"
	"github.com/rcliao/coach-context/internal/pack"
	"github.com/rcliao/coach-context/internal/quota"
)

// Config holds all coach settings.
type Config struct {
	Coach   CoachConfig   `yaml:"coach"`
	Quota   QuotaConfig   `yaml:"quota"`
	History HistoryConfig `yaml:"history"`
	Pack    PackConfig    `yaml:"pack"`
	Data    DataConfig    `yaml:"data"`
	Logging LoggingConfig `yaml:"logging"`
}

// CoachConfig configures the remote coach endpoint.
type CoachConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Timeout  string `yaml:"timeout"` // empty: no client-side timeout
}

// QuotaConfig configures the local daily message limit.
type QuotaConfig struct {
	DailyLimit         int `yaml:"daily_limit"`
	NearLimitThreshold int `yaml:"near_limit_threshold"`
}

// HistoryConfig configures how much prior conversation is sent.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// PackConfig configures context pack selection.
type PackConfig struct {
	CheckIns int `yaml:"checkins"`
	Journals int `yaml:"journals"`
}

// DataConfig locates the local database.
type DataConfig struct {
	DBPath string `yaml:"db_path"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Quota: QuotaConfig{
			DailyLimit:         quota.DefaultDailyLimit,
			NearLimitThreshold: quota.DefaultNearLimitThreshold,
		},
		History: HistoryConfig{Limit: history.DefaultLimit},
		Pack: PackConfig{
			CheckIns: pack.DefaultCheckInLimit,
			Journals: pack.DefaultJournalLimit,
		},
		Data:    DataConfig{DBPath: filepath.Join(homeDir(), ".coach", "coach.db")},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".coach", "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	// The file may hold the API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("COACH_API_KEY"); key != "" {
		c.Coach.APIKey = key
	}
	if endpoint := os.Getenv("COACH_ENDPOINT"); endpoint != "" {
		c.Coach.Endpoint = endpoint
	}
	if path := os.Getenv("COACH_DB"); path != "" {
		c.Data.DBPath = path
	}
	if level := os.Getenv("COACH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// CoachTimeout returns the request timeout. Zero, the value for an empty or
// unparseable setting, leaves the transport default in place.
func (c *Config) CoachTimeout() time.Duration {
	d, err := time.ParseDuration(c.Coach.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ValidLevels lists the accepted logging levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate checks ranges. It does not require credentials; a missing key
// surfaces at send time as a configuration error.
func (c *Config) Validate() error {
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota.daily_limit must be positive, got %d", c.Quota.DailyLimit)
	}
	if c.Quota.NearLimitThreshold < 0 {
		return fmt.Errorf("quota.near_limit_threshold must not be negative, got %d", c.Quota.NearLimitThreshold)
	}
	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be positive, got %d", c.History.Limit)
	}
	if c.Pack.CheckIns <= 0 || c.Pack.Journals <= 0 {
		return fmt.Errorf("pack limits must be positive (checkins=%d journals=%d)", c.Pack.CheckIns, c.Pack.Journals)
	}
	if c.Coach.Timeout != "" {
		if _, err := time.ParseDuration(c.Coach.Timeout); err != nil {
			return fmt.Errorf("invalid coach.timeout %q: %w", c.Coach.Timeout, err)
		}
	}
	for _, l := range ValidLevels {
		if c.Logging.Level == l {
			return nil
		}
	}
	return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLevels)
}
