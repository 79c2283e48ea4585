package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Batch   BatchConfig   `toml:"batch"`
	History HistoryConfig `toml:"history"`
	Notify  NotifyConfig  `toml:"notify"`
	Web     WebConfig     `toml:"web"`
}

// NotifyConfig holds outcome notification settings
type NotifyConfig struct {
	Desktop    bool   `toml:"desktop"`
	WebhookURL string `toml:"webhook_url"`
}

// BatchConfig holds defaults applied when starting a batch
type BatchConfig struct {
	Limit      int    `toml:"limit"`
	PresetPath string `toml:"preset_path"`
}

// BackendConfig holds backend connection settings
type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
	SchedulePath   string `toml:"schedule_path"`
}

// HistoryConfig holds the local attempt-log settings
type HistoryConfig struct {
	DatabasePath string `toml:"database_path"`
}

// WebConfig holds local status-mirror settings
type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// PollInterval returns the batch poll cadence as a duration
func (c *Config) PollInterval() time.Duration {
	if c.Backend.PollIntervalMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Backend.PollIntervalMS) * time.Millisecond
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Backend: BackendConfig{
			BaseURL:        "http://127.0.0.1:8000",
			PollIntervalMS: 2000,
		},
		Batch: BatchConfig{
			Limit: 10,
		},
		History: HistoryConfig{
			DatabasePath: filepath.Join(home, ".benchtop", "history.db"),
		},
		Web: WebConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8090,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.History.DatabasePath = ExpandPath(cfg.History.DatabasePath)
	cfg.Backend.SchedulePath = ExpandPath(cfg.Backend.SchedulePath)
	cfg.Batch.PresetPath = ExpandPath(cfg.Batch.PresetPath)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "benchtop", "config.toml")
}
