// Package config loads and validates the daemon configuration. Every
// subsystem defines its own config struct; this package composes them
// into one YAML document with sane defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mjelva/netwarden/internal/api"
	"github.com/mjelva/netwarden/internal/engine"
	"github.com/mjelva/netwarden/internal/history"
	"github.com/mjelva/netwarden/internal/logging"
	"github.com/mjelva/netwarden/internal/scheduler"
)

// Config is the complete daemon configuration.
type Config struct {
	Daemon    DaemonConfig     `yaml:"daemon" json:"daemon"`
	Logging   logging.Config   `yaml:"logging" json:"logging"`
	Engine    engine.Config    `yaml:"engine" json:"engine"`
	Database  history.Config   `yaml:"database" json:"database"`
	API       api.Config       `yaml:"api" json:"api"`
	Scheduler scheduler.Config `yaml:"scheduler" json:"scheduler"`
}

// DaemonConfig holds daemon-level settings.
type DaemonConfig struct {
	PIDFile         string        `yaml:"pid_file" json:"pid_file"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Daemon: DaemonConfig{
			PIDFile:         "/var/run/netwarden.pid",
			ShutdownTimeout: 30 * time.Second,
		},
		Logging:   logging.DefaultConfig(),
		Engine:    engine.DefaultConfig(),
		Database:  history.DefaultConfig(),
		API:       api.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
	}
}

// Load reads configuration from a YAML file, layered over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Engine.Network == "" {
		return fmt.Errorf("engine network is required")
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine timeout must not be negative")
	}

	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			return fmt.Errorf("API port must be between 1 and 65535")
		}
		if c.API.Host == "" {
			return fmt.Errorf("API host is required when the API is enabled")
		}
	}

	// History persistence is optional; when a database is named, the
	// connection settings must be complete.
	if c.HistoryEnabled() {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	if c.Scheduler.Enabled && c.Scheduler.Schedule == "" {
		return fmt.Errorf("scheduler schedule is required when the scheduler is enabled")
	}

	switch c.Logging.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// HistoryEnabled reports whether scan history persistence is configured.
func (c *Config) HistoryEnabled() bool {
	return c.Database.Database != ""
}
