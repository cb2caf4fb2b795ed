package bootstrap

import (
	"io"

	"github.com/kbukum/busdi/logger"
	"github.com/kbukum/busdi/observability"
)

// Option configures RegisterBus.
type Option func(*busOptions)

type busOptions struct {
	logger          *logger.Logger
	name            string
	instrument      bool
	instrumentation []observability.Option
	summary         io.Writer
	eager           bool
	onBuilt         []Hook
}

func resolveOptions(opts []Option) *busOptions {
	o := &busOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get("bootstrap")
	}
	return o
}

// WithLogger sets the logger registered for the bus and used by bootstrap.
// The default is the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *busOptions) { o.logger = l }
}

// WithName names the bus in logs, the summary and telemetry.
func WithName(name string) Option {
	return func(o *busOptions) { o.name = name }
}

// WithInstrumentation returns a resolver traced and measured by
// observability.Instrument.
func WithInstrumentation(opts ...observability.Option) Option {
	return func(o *busOptions) {
		o.instrument = true
		o.instrumentation = append(o.instrumentation, opts...)
	}
}

// WithSummary prints the registration summary to w after the build.
func WithSummary(w io.Writer) Option {
	return func(o *busOptions) { o.summary = w }
}

// WithEagerConfiguration resolves the connection configuration right after
// the build so an invalid configuration fails RegisterBus.
func WithEagerConfiguration() Option {
	return func(o *busOptions) { o.eager = true }
}

// WithOnBuilt adds hooks run in order after the build.
func WithOnBuilt(hooks ...Hook) Option {
	return func(o *busOptions) { o.onBuilt = append(o.onBuilt, hooks...) }
}
