package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/busdi/errors"
)

func newJSON(level string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", buf), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("invalid log line %q: %v", lines[len(lines)-1], err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.Service() != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.Service())
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	l, buf := newJSON("info")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug message written at info level: %s", buf.String())
	}
	l.Info("shown")
	if got := lastEntry(t, buf)["message"]; got != "shown" {
		t.Errorf("expected message 'shown', got %v", got)
	}
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newJSON("invalid-level")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("expected info level after invalid level")
	}
}

func TestWithComponentAndFields(t *testing.T) {
	l, buf := newJSON("debug")
	l.WithComponent("di.do").WithFields(map[string]interface{}{"scope": "s1"}).
		Debug("Scope created", Fields("service", "svc.A"))

	entry := lastEntry(t, buf)
	if entry[FieldComponent] != "di.do" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if entry["scope"] != "s1" || entry["service"] != "svc.A" {
		t.Errorf("missing fields in %v", entry)
	}
	if entry["svc"] != "test-svc" {
		t.Errorf("svc = %v", entry["svc"])
	}
}

func TestWithError(t *testing.T) {
	l, buf := newJSON("debug")
	l.WithError(fmt.Errorf("boom")).Error("failed")
	if entry := lastEntry(t, buf); entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestWithContextAddsSpanIDs(t *testing.T) {
	l, buf := newJSON("debug")

	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected same logger without span")
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	l.WithContext(ctx).Info("traced")

	entry := lastEntry(t, buf)
	if entry[FieldTraceID] != sc.TraceID().String() {
		t.Errorf("trace_id = %v", entry[FieldTraceID])
	}
	if entry[FieldSpanID] != sc.SpanID().String() {
		t.Errorf("span_id = %v", entry[FieldSpanID])
	}
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithWriter(&Config{Level: "debug", Format: "console", NoColor: true}, "svc", buf)
	l.Warn("careful")
	if !strings.Contains(buf.String(), "[WRN]") || !strings.Contains(buf.String(), "careful") {
		t.Errorf("unexpected console output %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("ignored")
	if l.GetLogger().GetLevel().String() != "disabled" {
		t.Errorf("expected disabled level, got %s", l.GetLogger().GetLevel())
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("BUSDI_LOG_LEVEL", "debug")
	t.Setenv("BUSDI_LOG_FORMAT", "json")

	l := NewFromEnv("env-svc")
	if got := l.GetLogger().GetLevel().String(); got != "debug" {
		t.Errorf("level = %s", got)
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	l, buf := newJSON("debug")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Fatal("expected global logger to be replaced")
	}

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	if n := strings.Count(buf.String(), "\n"); n != 4 {
		t.Errorf("expected 4 lines, got %d", n)
	}

	WithComponent("bootstrap").Info("tagged")
	if entry := lastEntry(t, buf); entry[FieldComponent] != "bootstrap" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
}

func TestInit(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	Init(Config{Level: "warn", Format: "json"})
	if got := GetGlobalLogger().GetLogger().GetLevel().String(); got != "warn" {
		t.Errorf("level = %s", got)
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := Nop()
	Register("registered", l)
	if Get("registered") != l {
		t.Error("expected registered logger")
	}
	if Get("unregistered") == nil {
		t.Error("expected fallback logger")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" || !cfg.Timestamp {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"level", Config{Level: "loud", Format: "json", Output: "stdout"}},
		{"format", Config{Level: "info", Format: "xml", Output: "stdout"}},
		{"output", Config{Level: "info", Format: "json", Output: "file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.IsInvalidArgument(err) {
				t.Errorf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, 2, "skipped", "b")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("unexpected fields %v", m)
	}

	ef := ErrorFields("resolve", fmt.Errorf("boom"))
	if ef[FieldOperation] != "resolve" || ef[FieldError] != "boom" {
		t.Errorf("unexpected error fields %v", ef)
	}

	df := DurationFields("build", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration fields %v", df)
	}
}
