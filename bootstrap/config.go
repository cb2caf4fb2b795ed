package bootstrap

import (
	"github.com/kbukum/busdi/config"
	"github.com/kbukum/busdi/connection"
	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/errors"
)

// ConfigurationFactory produces the connection configuration. It runs the
// first time the configuration is resolved, not during RegisterBus.
type ConfigurationFactory func(r di.Resolver) (*connection.Configuration, error)

// RegisterServices adds or replaces services before the adapter is built.
type RegisterServices func(services di.ServiceRegister, collections di.CollectionServiceRegister) error

// FromConnectionString parses s with the registered connection.Parser.
func FromConnectionString(s string) ConfigurationFactory {
	return func(r di.Resolver) (*connection.Configuration, error) {
		parser, err := di.Resolve[connection.Parser](r)
		if err != nil {
			return nil, err
		}
		return parser.Parse(s)
	}
}

// FromConfig loads the "bus" section of the service configuration.
func FromConfig(serviceName string, opts ...config.LoaderOption) ConfigurationFactory {
	return func(di.Resolver) (*connection.Configuration, error) {
		return connection.Load(serviceName, opts...)
	}
}

// FromValue returns c. The registered configuration is a validated copy;
// c itself is not modified.
func FromValue(c *connection.Configuration) ConfigurationFactory {
	return func(di.Resolver) (*connection.Configuration, error) {
		return c, nil
	}
}

// validated runs factory and validates a copy of its result.
func validated(factory ConfigurationFactory) func(di.Resolver) (*connection.Configuration, error) {
	return func(r di.Resolver) (*connection.Configuration, error) {
		c, err := factory(r)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errors.InvalidArgument("configuration", "factory returned nil")
		}
		c = c.Clone()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	}
}
