package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/streambot/logger"
)

var environments = []string{"development", "staging", "production"}

// ServiceConfig holds the process-wide settings: identity for telemetry,
// debug mode and logging. The bot configuration squashes it into its root
// table, so `name` and `[logging]` sit next to `database_url`.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig is promoted to embedding structs for the bootstrap.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults names the service streambot; the default development
// environment turns on debug.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "streambot"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the environment name and the logging section.
func (c *ServiceConfig) Validate() error {
	if !slices.Contains(environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
