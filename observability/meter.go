package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/busdi/logger"
	"github.com/kbukum/busdi/version"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment.
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string
	// Insecure disables TLS.
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Library(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the global meter provider. The caller shuts the
// returned provider down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the resolution instruments.
type Metrics struct {
	resolveTotal        metric.Int64Counter
	resolveDuration     metric.Float64Histogram
	constructionFailure metric.Int64Counter
	scopesActive        metric.Int64UpDownCounter
}

// NewMetrics creates the resolution instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	resolveTotal, err := meter.Int64Counter("di.resolve.total",
		metric.WithDescription("Resolutions by service, operation and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.resolve.total counter: %w", err)
	}

	resolveDuration, err := meter.Float64Histogram("di.resolve.duration",
		metric.WithDescription("Duration of resolutions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.resolve.duration histogram: %w", err)
	}

	constructionFailure, err := meter.Int64Counter("di.construction.failures",
		metric.WithDescription("Producers that failed while constructing a service"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.construction.failures counter: %w", err)
	}

	scopesActive, err := meter.Int64UpDownCounter("di.scopes.active",
		metric.WithDescription("Scopes created and not yet disposed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.scopes.active counter: %w", err)
	}

	return &Metrics{
		resolveTotal:        resolveTotal,
		resolveDuration:     resolveDuration,
		constructionFailure: constructionFailure,
		scopesActive:        scopesActive,
	}, nil
}

// RecordResolve records one Resolve or ResolveAll call.
func (m *Metrics) RecordResolve(ctx context.Context, service, operation, status string, duration time.Duration) {
	m.resolveTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.resolveDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

// RecordConstructionFailure counts a failed producer for service.
func (m *Metrics) RecordConstructionFailure(ctx context.Context, service string) {
	m.constructionFailure.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
	))
}

// ScopeCreated increments the active scope count.
func (m *Metrics) ScopeCreated(ctx context.Context) {
	m.scopesActive.Add(ctx, 1)
}

// ScopeDisposed decrements the active scope count.
func (m *Metrics) ScopeDisposed(ctx context.Context) {
	m.scopesActive.Add(ctx, -1)
}
