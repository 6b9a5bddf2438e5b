// Package tracing provides OpenTelemetry spans for cache lookups and renders.
// It is entirely optional: spans are only recorded when a [Config] is wired
// in via the WithOpenTelemetry engine option.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Keksclan/texcache/tracing"

// Attribute keys set on engine spans.
const (
	AttrTier                = attribute.Key("texcache.tier")
	AttrCacheHit            = attribute.Key("texcache.cache_hit")
	AttrFingerprintFallback = attribute.Key("texcache.fingerprint_fallback")
	AttrFormulaLength       = attribute.Key("texcache.formula_length")
	AttrXHeight             = attribute.Key("texcache.x_height")
)

// Config holds the OpenTelemetry configuration used by the engine.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider
}

// tracer returns a configured [trace.Tracer]. A nil Config yields a no-op
// tracer.
func (c *Config) tracer() trace.Tracer {
	if c == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

// Start creates an internal span named name. It is safe to call on a nil
// Config.
func (c *Config) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer().Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End sets the span status from err and ends the span.
func End(span trace.Span, err error) {
	recordStatus(span, err)
	span.End()
}

func recordStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
