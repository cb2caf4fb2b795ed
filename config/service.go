package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/busdi/errors"
	"github.com/kbukum/busdi/logger"
)

var validEnvironments = []string{"development", "staging", "production"}

// ServiceConfig contains the fields every service built on the bus needs.
// Embed it to extend:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Bus connection.Configuration `yaml:"bus" mapstructure:"bus"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return errors.Validation("config.name is required")
	}
	if !slices.Contains(validEnvironments, c.Environment) {
		return errors.Validation(fmt.Sprintf("config.environment must be one of %v (got: %s)", validEnvironments, c.Environment))
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Validation(fmt.Sprintf("config.logging: %v", err)).WithCause(err)
	}
	return nil
}
