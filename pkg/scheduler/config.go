package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the scheduler daemon configuration, loaded from YAML.
type Config struct {
	TimeZone   string                 `yaml:"timezone"`
	RedisAddr  string                 `yaml:"redis_addr"`
	StatusAddr string                 `yaml:"status_addr"`
	Schedules  map[string]JobSchedule `yaml:"schedules"`
}

// JobSchedule defines when one registered job runs.
type JobSchedule struct {
	Cron        string `yaml:"cron"`
	Enabled     bool   `yaml:"enabled"`
	Description string `yaml:"description"`
}

// LoadConfig reads a config file, applying environment overrides for the
// Redis address.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.RedisAddr = addr
	}

	return config, nil
}

// DefaultConfig returns the default schedule: one full pipeline run per day,
// after the overnight crawls have landed.
func DefaultConfig() *Config {
	return &Config{
		TimeZone:   "Asia/Ho_Chi_Minh",
		RedisAddr:  "",
		StatusAddr: ":8090",
		Schedules: map[string]JobSchedule{
			"pipeline": {
				Cron:        "0 6 * * *",
				Enabled:     true,
				Description: "Full ingest, clean, reconcile and warehouse load for the newest crawl",
			},
		},
	}
}
