// Package config loads application settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings.
type Config struct {
	// Port is the HTTP listen port.
	Port string `env:"PORT" envDefault:"8080"`
	// DBPath is the SQLite database file path.
	DBPath string `env:"EVENTBOOK_DB" envDefault:"eventbook.db"`
	// SchedulerURL is the base URL of the external scheduling service.
	// Empty means the service is not configured; scheduling endpoints
	// report it as unavailable rather than failing the rest of the system.
	SchedulerURL string `env:"EVENTBOOK_SCHEDULER_URL"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
