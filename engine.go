package texcache

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Keksclan/texcache/cache"
	"github.com/Keksclan/texcache/fingerprint"
	"github.com/Keksclan/texcache/svg"
	"github.com/Keksclan/texcache/tex"
	"github.com/Keksclan/texcache/tracing"
)

// Engine renders formulas through the cache. All methods are safe for
// concurrent use.
//
//	eng, err := texcache.New(renderer, texcache.DefaultOptions()...)
//	s, err := eng.SVG(ctx, `\frac{1}{2}`, tex.DefaultConversionOptions(), tex.DefaultInputOptions())
//	size := s.SizeInPoints(xHeight)
type Engine struct {
	store      *cache.Store
	renderer   tex.Renderer
	rasterizer tex.Rasterizer
	tracing    *tracing.Config
	logger     *slog.Logger
	metrics    *metrics
	registerer prometheus.Registerer

	// flights deduplicates concurrent misses for the same fingerprint.
	flights singleflight.Group
}

// New creates an [Engine] around renderer by applying the supplied functional
// [Option] values. Renderer middleware execution order is determined by fixed
// priority levels, not by the order options are passed. Without [WithStore]
// the engine uses [cache.Shared].
func New(renderer tex.Renderer, opts ...Option) (*Engine, error) {
	if renderer == nil {
		return nil, ErrNoRenderer
	}

	cfg := config{registerer: prometheus.DefaultRegisterer}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.store == nil {
		cfg.store = cache.Shared()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		store:      cfg.store,
		renderer:   Wrap(renderer, cfg.middlewares.Build()...),
		rasterizer: cfg.rasterizer,
		tracing:    cfg.tracing,
		logger:     cfg.logger,
		metrics:    newMetrics(cfg.registerer),
		registerer: cfg.registerer,
	}, nil
}

// Store returns the cache the engine reads and writes.
func (e *Engine) Store() *cache.Store {
	return e.store
}

// SVG returns the rendered formula for the given inputs, calling the renderer
// only when the markup tier has no entry. Renderer errors and markup that
// cannot be turned into an [svg.SVG] are returned and nothing is cached.
func (e *Engine) SVG(ctx context.Context, formula string, conv tex.ConversionOptions, input tex.InputOptions) (s svg.SVG, err error) {
	ctx, span := e.tracing.Start(ctx, "texcache.svg",
		tracing.AttrTier.String(cache.TierMarkup),
		tracing.AttrFormulaLength.Int(len(formula)),
	)
	defer func() { tracing.End(span, err) }()

	key := cache.MarkupKey{Formula: formula, Conversion: conv, Input: input}
	if s, ok := e.cachedSVG(ctx, key); ok {
		span.SetAttributes(tracing.AttrCacheHit.Bool(true))
		return s, nil
	}
	span.SetAttributes(tracing.AttrCacheHit.Bool(false))

	v, err := e.once(ctx, span, key, func(ctx context.Context) (any, error) {
		if s, ok := e.cachedSVG(ctx, key); ok {
			return s, nil
		}
		return e.renderSVG(ctx, key)
	})
	if err != nil {
		return svg.SVG{}, err
	}
	return v.(svg.SVG), nil
}

// Image returns s rasterized for a font with the given x-height, calling the
// rasterizer only when the image tier has no entry.
func (e *Engine) Image(ctx context.Context, s svg.SVG, xHeight float64) (img image.Image, err error) {
	ctx, span := e.tracing.Start(ctx, "texcache.image",
		tracing.AttrTier.String(cache.TierImage),
		tracing.AttrXHeight.Float64(xHeight),
	)
	defer func() { tracing.End(span, err) }()

	if e.rasterizer == nil {
		return nil, ErrNoRasterizer
	}

	key := cache.ImageKey{SVG: s, XHeight: xHeight}
	if img, ok := e.store.Image(ctx, key); ok {
		span.SetAttributes(tracing.AttrCacheHit.Bool(true))
		return img, nil
	}
	span.SetAttributes(tracing.AttrCacheHit.Bool(false))

	v, err := e.once(ctx, span, key, func(ctx context.Context) (any, error) {
		if img, ok := e.store.Image(ctx, key); ok {
			return img, nil
		}
		return e.rasterize(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics from
// the engine's registry.
func (e *Engine) MetricsHandler() http.Handler {
	if g, ok := e.registerer.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// once runs fn at most once per fingerprint among concurrent callers. Keys
// on the fallback path may collide with other keys, so they are not shared.
//
// A shared call ignores cancellation of the caller that started it, so one
// caller giving up does not fail the others; that caller's deadline still
// bounds the call. Each caller returns as soon as its own ctx is done and the
// render completes in the background and is cached.
func (e *Engine) once(ctx context.Context, span trace.Span, key fingerprint.Key, fn func(context.Context) (any, error)) (any, error) {
	fp := fingerprint.Of(key)
	span.SetAttributes(tracing.AttrFingerprintFallback.Bool(fp.Fallback))
	if fp.Fallback {
		e.logger.DebugContext(ctx, "fingerprint fallback, not deduplicating", "namespace", key.Namespace(), "error", fp.Err)
		return fn(ctx)
	}

	ch := e.flights.DoChan(fp.Value, func() (any, error) {
		shared, cancel := detach(ctx)
		defer cancel()
		return fn(shared)
	})
	select {
	case r := <-ch:
		if r.Shared {
			e.logger.DebugContext(ctx, "joined in-flight render", "fingerprint", fp.Value)
		}
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// detach returns a context with ctx's values and deadline but not its
// cancellation.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	d := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(d, deadline)
	}
	return d, func() {}
}

// cachedSVG decodes the markup tier entry for key. Undecodable entries are
// treated as misses.
func (e *Engine) cachedSVG(ctx context.Context, key cache.MarkupKey) (svg.SVG, bool) {
	data, ok := e.store.Markup(ctx, key)
	if !ok {
		return svg.SVG{}, false
	}
	s, err := svg.Decode(data)
	if err != nil {
		e.logger.WarnContext(ctx, "discarding undecodable cache entry", "error", err)
		return svg.SVG{}, false
	}
	return s, true
}

func (e *Engine) renderSVG(ctx context.Context, key cache.MarkupKey) (svg.SVG, error) {
	start := time.Now()
	out, err := e.renderer.Render(ctx, key.Formula, key.Conversion, key.Input)
	e.metrics.observe(stageRender, start, err)
	if err != nil {
		return svg.SVG{}, fmt.Errorf("texcache: render: %w", err)
	}

	s, err := svg.Parse(out.Markup, out.ErrorText)
	if err != nil {
		e.metrics.errors.WithLabelValues(stageParse).Inc()
		return svg.SVG{}, err
	}
	if out.ErrorText != "" {
		e.logger.InfoContext(ctx, "renderer reported an error", "error_text", out.ErrorText)
	}

	e.store.PutMarkup(ctx, s.Encode(), key)
	return s, nil
}

func (e *Engine) rasterize(ctx context.Context, key cache.ImageKey) (img image.Image, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: rasterizer: %v", ErrRendererPanic, r)
		}
		e.metrics.observe(stageRasterize, start, err)
	}()

	img, err = e.rasterizer.Rasterize(ctx, key.SVG, key.XHeight)
	if err != nil {
		return nil, fmt.Errorf("texcache: rasterize: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("texcache: rasterize: rasterizer returned no image")
	}
	e.store.PutImage(ctx, img, key)
	return img, nil
}
