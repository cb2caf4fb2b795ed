// Package observability instruments dependency resolution with
// OpenTelemetry and sets up the trace and metric providers.
//
// Instrument wraps any di.Resolver, including the scopes it creates, so
// every resolve produces a span and feeds the resolution metrics:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("orders"))
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
//	resolver = observability.Instrument(resolver, observability.WithMetrics(metrics))
//
// ResolutionCheck reports whether a set of services currently resolves:
//
//	health := observability.NewServiceHealth("orders", version.Library())
//	health.AddComponent(observability.ResolutionCheck("bus", resolver, keys...).CheckHealth(ctx))
package observability
