package tracing

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newTestConfig returns a Config backed by an in-memory span recorder.
func newTestConfig(t *testing.T) (*Config, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return &Config{TracerProvider: tp}, rec
}

func TestStart_CreatesInternalSpan(t *testing.T) {
	cfg, rec := newTestConfig(t)

	_, span := cfg.Start(t.Context(), "texcache.svg", AttrTier.String("svg"), AttrCacheHit.Bool(true))
	End(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "texcache.svg" {
		t.Fatalf("expected span name %q, got %q", "texcache.svg", s.Name())
	}
	if s.SpanKind() != trace.SpanKindInternal {
		t.Fatalf("expected SpanKindInternal, got %v", s.SpanKind())
	}
	if s.Status().Code != codes.Ok {
		t.Fatalf("expected Ok status, got %v", s.Status().Code)
	}
	assertAttr(t, s.Attributes(), AttrTier, attribute.StringValue("svg"))
	assertAttr(t, s.Attributes(), AttrCacheHit, attribute.BoolValue(true))
}

func TestEnd_RecordsError(t *testing.T) {
	cfg, rec := newTestConfig(t)

	_, span := cfg.Start(t.Context(), "texcache.image")
	End(span, errors.New("rasterizer failed"))

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Fatalf("expected Error status, got %v", s.Status().Code)
	}
	if s.Status().Description != "rasterizer failed" {
		t.Fatalf("unexpected status description %q", s.Status().Description)
	}
	if len(s.Events()) == 0 {
		t.Fatal("expected an exception event")
	}
}

func TestStart_ChildOfParent(t *testing.T) {
	cfg, rec := newTestConfig(t)

	ctx, parent := cfg.Start(t.Context(), "parent")
	_, child := cfg.Start(ctx, "child")
	End(child, nil)
	End(parent, nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Fatal("child span is not parented to the outer span")
	}
}

func TestStart_NilConfigIsNoop(t *testing.T) {
	var cfg *Config
	ctx, span := cfg.Start(t.Context(), "texcache.svg")
	if ctx == nil {
		t.Fatal("expected a context")
	}
	if span.IsRecording() {
		t.Fatal("nil config must not record spans")
	}
	End(span, nil)
}

func assertAttr(t *testing.T, attrs []attribute.KeyValue, key attribute.Key, want attribute.Value) {
	t.Helper()
	for _, a := range attrs {
		if a.Key == key {
			if a.Value != want {
				t.Errorf("attribute %q = %v, want %v", key, a.Value.Emit(), want.Emit())
			}
			return
		}
	}
	t.Errorf("attribute %q not found", key)
}
