package observability

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/errors"
)

// Option configures Instrument.
type Option func(*instrumentation)

type instrumentation struct {
	name    string
	tracer  trace.Tracer
	metrics *Metrics
	ctx     context.Context
}

// WithName labels spans with the resolver name, e.g. the adapter in use.
func WithName(name string) Option {
	return func(i *instrumentation) { i.name = name }
}

// WithTracer sets the tracer. The default is the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(i *instrumentation) { i.tracer = t }
}

// WithMetrics enables metric recording.
func WithMetrics(m *Metrics) Option {
	return func(i *instrumentation) { i.metrics = m }
}

// WithContext sets the parent context of every span.
func WithContext(ctx context.Context) Option {
	return func(i *instrumentation) { i.ctx = ctx }
}

// Instrument wraps r so that resolutions are traced and measured. Scopes
// created through the result are instrumented too, and resolving
// di.Resolver returns the instrumented resolver.
func Instrument(r di.Resolver, opts ...Option) di.Resolver {
	i := &instrumentation{name: "default", ctx: context.Background()}
	for _, opt := range opts {
		opt(i)
	}
	if i.tracer == nil {
		i.tracer = Tracer(InstrumentationName)
	}
	return &instrumentedResolver{inner: r, inst: i}
}

type instrumentedResolver struct {
	inner di.Resolver
	inst  *instrumentation
}

func (r *instrumentedResolver) Resolve(key di.ServiceKey) (any, error) {
	if key == di.ResolverKey() {
		return r, nil
	}
	done := r.inst.start(SpanResolve, "resolve", key)
	instance, err := r.inner.Resolve(key)
	done(1, err)
	return instance, err
}

func (r *instrumentedResolver) ResolveAll(key di.ServiceKey) ([]any, error) {
	done := r.inst.start(SpanResolveAll, "resolve_all", key)
	instances, err := r.inner.ResolveAll(key)
	done(len(instances), err)
	return instances, err
}

func (r *instrumentedResolver) CreateScope() (di.Scope, error) {
	return r.inst.createScope(r.inner)
}

type instrumentedScope struct {
	scope    di.Scope
	inst     *instrumentation
	disposed atomic.Bool
}

func (s *instrumentedScope) Resolve(key di.ServiceKey) (any, error) {
	if key == di.ResolverKey() {
		return s, nil
	}
	done := s.inst.start(SpanResolve, "resolve", key)
	instance, err := s.scope.Resolve(key)
	done(1, err)
	return instance, err
}

func (s *instrumentedScope) ResolveAll(key di.ServiceKey) ([]any, error) {
	done := s.inst.start(SpanResolveAll, "resolve_all", key)
	instances, err := s.scope.ResolveAll(key)
	done(len(instances), err)
	return instances, err
}

func (s *instrumentedScope) CreateScope() (di.Scope, error) {
	return s.inst.createScope(s.scope)
}

// Dispose decrements the active scope count on the first call only.
func (s *instrumentedScope) Dispose() error {
	_, span := s.inst.tracer.Start(s.inst.ctx, SpanDispose, trace.WithAttributes(
		attribute.String(AttrResolver, s.inst.name),
	))
	defer span.End()

	err := s.scope.Dispose()
	if err != nil {
		recordError(span, err)
	}
	if s.disposed.CompareAndSwap(false, true) && s.inst.metrics != nil {
		s.inst.metrics.ScopeDisposed(s.inst.ctx)
	}
	return err
}

func (i *instrumentation) createScope(parent di.Resolver) (di.Scope, error) {
	_, span := i.tracer.Start(i.ctx, SpanCreateScope, trace.WithAttributes(
		attribute.String(AttrResolver, i.name),
	))
	defer span.End()

	scope, err := parent.CreateScope()
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if i.metrics != nil {
		i.metrics.ScopeCreated(i.ctx)
	}
	return &instrumentedScope{scope: scope, inst: i}, nil
}

// start opens a span for one resolution and returns the function that
// closes it.
func (i *instrumentation) start(spanName, operation string, key di.ServiceKey) func(count int, err error) {
	service := key.String()
	began := time.Now()
	_, span := i.tracer.Start(i.ctx, spanName, trace.WithAttributes(
		attribute.String(AttrService, service),
		attribute.String(AttrResolver, i.name),
	))

	return func(count int, err error) {
		defer span.End()

		status := "ok"
		if err != nil {
			status = "error"
			recordError(span, err)
			if i.metrics != nil && errors.IsConstructionFailure(err) {
				i.metrics.RecordConstructionFailure(i.ctx, service)
			}
		}
		span.SetAttributes(
			attribute.String(AttrStatus, status),
			attribute.Int(AttrCount, count),
		)
		if i.metrics != nil {
			i.metrics.RecordResolve(i.ctx, service, operation, status, time.Since(began))
		}
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if code := errors.CodeOf(err); code != "" {
		span.SetAttributes(attribute.String(AttrErrorCode, string(code)))
	}
}
