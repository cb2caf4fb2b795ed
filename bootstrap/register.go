package bootstrap

import (
	"fmt"
	"time"

	"github.com/kbukum/busdi/connection"
	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/errors"
	"github.com/kbukum/busdi/logger"
	"github.com/kbukum/busdi/observability"
)

// RegisterBus registers the default bus services into adapter, hands the
// adapter to register as both the single-winner and the collection
// register, then builds it.
//
// Defaults registered before register runs:
//
//   - *connection.Configuration: singleton produced by factory and validated
//   - connection.Parser: connection.StringParser
//   - *logger.Logger: the bootstrap logger
//
// register may be nil. The adapter stays owned by the caller, who disposes
// it; the returned resolver is the adapter unless WithInstrumentation wraps it.
func RegisterBus(adapter di.Adapter, factory ConfigurationFactory, register RegisterServices, opts ...Option) (di.Resolver, error) {
	if adapter == nil {
		return nil, errors.InvalidArgument("adapter", "must not be nil")
	}
	if factory == nil {
		return nil, errors.InvalidArgument("factory", "must not be nil")
	}

	o := resolveOptions(opts)
	adapterName := fmt.Sprintf("%T", adapter)
	if o.name == "" {
		o.name = "bus"
	}
	log := o.logger.WithFields(map[string]interface{}{"bus": o.name, "adapter": adapterName})
	start := time.Now()

	if err := registerDefaults(adapter, factory, o.logger); err != nil {
		return nil, err
	}
	if register != nil {
		if err := register(adapter, adapter); err != nil {
			log.Error("Service registration failed", logger.ErrorFields("register", err))
			return nil, err
		}
	}
	if err := adapter.Build(); err != nil {
		log.Error("Adapter build failed", logger.ErrorFields("build", err))
		return nil, err
	}

	var resolver di.Resolver = adapter
	if o.instrument {
		resolver = observability.Instrument(adapter, append([]observability.Option{observability.WithName(o.name)}, o.instrumentation...)...)
	}

	if o.eager {
		if _, err := di.Resolve[*connection.Configuration](resolver); err != nil {
			log.Error("Connection configuration is invalid", logger.ErrorFields("configure", err))
			return nil, err
		}
	}
	if err := runHooks(resolver, o.onBuilt); err != nil {
		return nil, err
	}

	summary := NewSummary(o.name, adapterName)
	summary.SetBuildDuration(time.Since(start))
	if inspector, ok := adapter.(di.Inspector); ok {
		summary.Collect(inspector)
	}
	log.Info("Bus services registered", summary.Fields())
	if o.summary != nil {
		summary.Display(o.summary)
	}
	return resolver, nil
}

// RegisterBusWithConnectionString is RegisterBus with a configuration parsed
// from connectionString by the registered connection.Parser. Replacing the
// parser in register changes how the string is parsed.
func RegisterBusWithConnectionString(adapter di.Adapter, connectionString string, register RegisterServices, opts ...Option) (di.Resolver, error) {
	return RegisterBus(adapter, FromConnectionString(connectionString), register, opts...)
}

func registerDefaults(adapter di.Adapter, factory ConfigurationFactory, log *logger.Logger) error {
	if err := di.RegisterFactory[*connection.Configuration](adapter, validated(factory)); err != nil {
		return err
	}
	if err := di.RegisterInstance[connection.Parser](adapter, connection.StringParser{}); err != nil {
		return err
	}
	return di.RegisterInstance[*logger.Logger](adapter, log)
}
