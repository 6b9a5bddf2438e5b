// Package cache provides the two-tier memoization store for rendered
// formulas. The markup tier maps renderer inputs to serialized SVG bytes; the
// image tier maps an SVG and a font x-height to a decoded image. Each tier is
// an independently locked, bounded ristretto cache that evicts on its own.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// markupMaxCost bounds the markup tier in bytes.
	markupMaxCost = 64 << 20
	// imageMaxCost bounds the image tier in bytes of decoded pixels.
	imageMaxCost = 256 << 20
	// numCounters is the number of admission counters per tier, roughly ten
	// times the number of entries a full tier is expected to hold.
	numCounters = 1_000_000
)

// Store is the dual cache. All methods are safe for concurrent use. Lookups
// never fail; a miss is reported by the boolean result.
type Store struct {
	markup *tier[MarkupKey, []byte]
	image  *tier[ImageKey, image.Image]
}

// New creates a Store. Most programs share one store through [Shared] or by
// passing a single Store to every component that renders.
func New(opts ...Option) (*Store, error) {
	cfg := config{logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(&cfg)
	}
	m := newMetrics(cfg.registerer)

	markup, err := newTier[MarkupKey](TierMarkup, markupMaxCost, markupCost, m, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("cache: markup tier: %w", err)
	}
	img, err := newTier[ImageKey](TierImage, imageMaxCost, imageCost, m, cfg.logger)
	if err != nil {
		markup.close()
		return nil, fmt.Errorf("cache: image tier: %w", err)
	}
	return &Store{markup: markup, image: img}, nil
}

var shared = sync.OnceValue(func() *Store {
	s, err := New(WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		panic(err)
	}
	return s
})

// Shared returns the process-wide store, constructing it on first use. It
// lives until the process exits and reports its metrics to
// [prometheus.DefaultRegisterer].
func Shared() *Store {
	return shared()
}

// Markup returns the serialized SVG stored for key.
func (s *Store) Markup(ctx context.Context, key MarkupKey) ([]byte, bool) {
	v, ok := s.markup.get(ctx, key)
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

// PutMarkup stores data for key, replacing any previous value.
func (s *Store) PutMarkup(ctx context.Context, data []byte, key MarkupKey) {
	s.markup.put(ctx, key, bytes.Clone(data))
}

// Image returns the decoded image stored for key.
func (s *Store) Image(ctx context.Context, key ImageKey) (image.Image, bool) {
	return s.image.get(ctx, key)
}

// PutImage stores img for key, replacing any previous value. Callers must not
// mutate img afterwards. A nil image is ignored.
func (s *Store) PutImage(ctx context.Context, img image.Image, key ImageKey) {
	if img == nil {
		return
	}
	s.image.put(ctx, key, img)
}

// Close releases the tiers' background goroutines. It must not be called on
// the [Shared] store.
func (s *Store) Close() {
	s.markup.close()
	s.image.close()
}

func markupCost(b []byte) int64 { return int64(len(b)) }

// imageCost assumes four bytes per pixel.
func imageCost(img image.Image) int64 {
	r := img.Bounds()
	return int64(r.Dx()) * int64(r.Dy()) * 4
}
