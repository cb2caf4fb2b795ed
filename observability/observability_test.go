package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/ditest"
	"github.com/kbukum/busdi/errors"
)

type harness struct {
	spans   *tracetest.InMemoryExporter
	reader  *sdkmetric.ManualReader
	metrics *Metrics
	tracer  *sdktrace.TracerProvider
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		spans:  tracetest.NewInMemoryExporter(),
		reader: sdkmetric.NewManualReader(),
	}
	h.tracer = sdktrace.NewTracerProvider(sdktrace.WithSyncer(h.spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.reader))
	t.Cleanup(func() {
		_ = h.tracer.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	h.metrics = metrics
	return h
}

func (h *harness) instrument(r di.Resolver) di.Resolver {
	return Instrument(r,
		WithName("default"),
		WithTracer(h.tracer.Tracer("test")),
		WithMetrics(h.metrics),
	)
}

func (h *harness) collect(t *testing.T) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumByStatus(t *testing.T, data metricdata.Aggregation, status string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key("status")); ok && v.AsString() == status {
			total += dp.Value
		}
	}
	return total
}

func total(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var n int64
	for _, dp := range sum.DataPoints {
		n += dp.Value
	}
	return n
}

func newContainer(t *testing.T) *di.Container {
	t.Helper()
	c := di.NewContainer()
	t.Cleanup(func() { _ = c.Dispose() })
	return c
}

func TestInstrumentRecordsResolutions(t *testing.T) {
	h := newHarness(t)
	c := newContainer(t)
	if err := di.Register[ditest.Service](c, ditest.NewService); err != nil {
		t.Fatal(err)
	}
	if err := di.Append[ditest.Service](c, ditest.NewService); err != nil {
		t.Fatal(err)
	}
	r := h.instrument(c)

	if _, err := di.Resolve[ditest.Service](r); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	all, err := di.ResolveAll[ditest.Service](r)
	if err != nil || len(all) != 1 {
		t.Fatalf("resolve all: %v %v", all, err)
	}
	if _, err := di.Resolve[*ditest.Consumer](r); !errors.IsNotRegistered(err) {
		t.Fatalf("expected NOT_REGISTERED, got %v", err)
	}

	spans := h.spans.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[0].Name != SpanResolve || spans[1].Name != SpanResolveAll {
		t.Errorf("unexpected span names %q %q", spans[0].Name, spans[1].Name)
	}
	failed := spans[2]
	if failed.Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", failed.Status)
	}
	found := false
	for _, a := range failed.Attributes {
		if a.Key == AttrErrorCode && a.Value.AsString() == string(errors.ErrCodeNotRegistered) {
			found = true
		}
	}
	if !found {
		t.Errorf("missing error code attribute in %v", failed.Attributes)
	}

	data := h.collect(t)
	if got := sumByStatus(t, data["di.resolve.total"], "ok"); got != 2 {
		t.Errorf("expected 2 ok resolutions, got %d", got)
	}
	if got := sumByStatus(t, data["di.resolve.total"], "error"); got != 1 {
		t.Errorf("expected 1 failed resolution, got %d", got)
	}
	if _, ok := data["di.resolve.duration"].(metricdata.Histogram[float64]); !ok {
		t.Errorf("expected duration histogram, got %T", data["di.resolve.duration"])
	}
}

func TestInstrumentCountsConstructionFailures(t *testing.T) {
	h := newHarness(t)
	c := newContainer(t)
	err := di.RegisterFactory[ditest.Service](c, func(di.Resolver) (ditest.Service, error) {
		return nil, fmt.Errorf("broker unreachable")
	})
	if err != nil {
		t.Fatal(err)
	}
	r := h.instrument(c)

	for range 2 {
		if _, err := di.Resolve[ditest.Service](r); !errors.IsConstructionFailure(err) {
			t.Fatalf("expected CONSTRUCTION_FAILURE, got %v", err)
		}
	}
	if got := total(t, h.collect(t)["di.construction.failures"]); got != 2 {
		t.Errorf("expected 2 construction failures, got %d", got)
	}
}

func TestInstrumentedScopes(t *testing.T) {
	h := newHarness(t)
	c := newContainer(t)
	if err := di.Register[*ditest.Resource](c, ditest.NewResource, di.WithLifetime(di.Transient)); err != nil {
		t.Fatal(err)
	}
	r := h.instrument(c)

	scope, err := r.CreateScope()
	if err != nil {
		t.Fatal(err)
	}
	self, err := di.Resolve[di.Resolver](scope)
	if err != nil || self != scope {
		t.Fatalf("expected scope to resolve itself, got %v %v", self, err)
	}
	res, err := di.Resolve[*ditest.Resource](scope)
	if err != nil {
		t.Fatal(err)
	}
	child, err := scope.CreateScope()
	if err != nil {
		t.Fatal(err)
	}

	if got := total(t, h.collect(t)["di.scopes.active"]); got != 2 {
		t.Errorf("expected 2 active scopes, got %d", got)
	}

	if err := scope.Dispose(); err != nil {
		t.Fatal(err)
	}
	if err := child.Dispose(); err != nil {
		t.Fatal(err)
	}
	if err := scope.Dispose(); err != nil {
		t.Fatal(err)
	}
	if res.Disposed() != 1 {
		t.Errorf("expected resource disposed once, got %d", res.Disposed())
	}
	if got := total(t, h.collect(t)["di.scopes.active"]); got != 0 {
		t.Errorf("expected no active scopes, got %d", got)
	}

	if _, err := di.Resolve[*ditest.Resource](scope); !errors.IsUseAfterDispose(err) {
		t.Errorf("expected USE_AFTER_DISPOSE, got %v", err)
	}
}

func TestInstrumentResolvesItself(t *testing.T) {
	r := Instrument(newContainer(t))
	self, err := di.Resolve[di.Resolver](r)
	if err != nil || self != r {
		t.Fatalf("expected instrumented resolver, got %v %v", self, err)
	}
}

func TestInstrumentWithNoopMeter(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	c := newContainer(t)
	if err := di.Register[ditest.Service](c, ditest.NewService); err != nil {
		t.Fatal(err)
	}
	r := Instrument(c, WithMetrics(metrics), WithContext(context.Background()))
	if _, err := di.Resolve[ditest.Service](r); err != nil {
		t.Fatal(err)
	}
}

func TestResolutionCheck(t *testing.T) {
	c := newContainer(t)
	if err := di.Register[ditest.Service](c, ditest.NewService); err != nil {
		t.Fatal(err)
	}
	serviceKey := di.KeyOf[ditest.Service]()
	missingKey := di.KeyOf[*ditest.Consumer]()

	up := ResolutionCheck("bus", c, serviceKey).CheckHealth(context.Background())
	if up.Status != HealthStatusUp {
		t.Errorf("expected up, got %+v", up)
	}

	degraded := ResolutionCheck("bus", c, serviceKey, missingKey).CheckHealth(context.Background())
	if degraded.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %+v", degraded)
	}
	if degraded.Details[missingKey.String()] != string(errors.ErrCodeNotRegistered) {
		t.Errorf("unexpected details %v", degraded.Details)
	}

	if err := c.Dispose(); err != nil {
		t.Fatal(err)
	}
	down := ResolutionCheck("bus", c, serviceKey).CheckHealth(context.Background())
	if down.Status != HealthStatusDown {
		t.Errorf("expected down, got %+v", down)
	}
}

func TestServiceHealthAggregates(t *testing.T) {
	sh := NewServiceHealth("orders", "v1.0.0")
	sh.AddComponent(Health{Name: "a", Status: HealthStatusUp})
	if sh.Status != HealthStatusUp {
		t.Errorf("expected up, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "b", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "c", Status: HealthStatusDown})
	sh.AddComponent(Health{Name: "d", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Errorf("degraded must not override down, got %s", sh.Status)
	}
}

func TestDefaultConfigs(t *testing.T) {
	tc := DefaultTracerConfig("orders")
	if tc.ServiceName != "orders" || tc.Endpoint != "localhost:4318" || tc.SampleRate != 1.0 || !tc.Insecure {
		t.Errorf("unexpected tracer defaults %+v", tc)
	}
	mc := DefaultMeterConfig("orders")
	if mc.Interval != 15*time.Second || mc.ServiceVersion == "" {
		t.Errorf("unexpected meter defaults %+v", mc)
	}
}

func TestInitProviders(t *testing.T) {
	ctx := context.Background()

	tp, err := InitTracer(ctx, DefaultTracerConfig("orders"))
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	cfg := DefaultMeterConfig("orders")
	mp, err := InitMeter(ctx, &cfg)
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_ = mp.Shutdown(shutdownCtx)
	})
}

func TestSampler(t *testing.T) {
	for _, rate := range []float64{0, 0.5, 1} {
		if sampler(rate) == nil {
			t.Errorf("nil sampler for %v", rate)
		}
	}
}
