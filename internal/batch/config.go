package batch

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ScheduleEntry is one unattended batch start on a cron cadence
type ScheduleEntry struct {
	Name  string   `toml:"name"`
	Cron  string   `toml:"cron"`
	Limit int      `toml:"limit"`
	IDs   []string `toml:"ids"`
}

// ScheduleConfig holds all scheduled batch entries
type ScheduleConfig struct {
	Entries []ScheduleEntry `toml:"schedule"`
}

// Validate checks if the entry is valid
func (e *ScheduleEntry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if e.Cron == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := ParseCron(e.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	if e.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	return nil
}

// LoadScheduleConfig loads the schedule from a TOML file
func LoadScheduleConfig(path string) (*ScheduleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ScheduleConfig{}, nil
		}
		return nil, err
	}

	var cfg ScheduleConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	for i := range cfg.Entries {
		if err := cfg.Entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i, err)
		}
	}

	return &cfg, nil
}
