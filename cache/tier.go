package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Keksclan/texcache/fingerprint"
)

// tier is one fingerprint-to-value mapping backed by ristretto. Its lock
// serializes writes; reads share it. Operations on different tiers never
// contend.
type tier[K fingerprint.Key, V any] struct {
	name   string
	rc     *ristretto.Cache[string, V]
	cost   func(V) int64
	m      *metrics
	logger *slog.Logger

	mu sync.RWMutex
	// rejected is set by ristretto's OnReject while put waits for the write.
	rejected atomic.Bool
}

// newTier creates a tier holding at most maxCost units as measured by cost.
func newTier[K fingerprint.Key, V any](name string, maxCost int64, cost func(V) int64, m *metrics, logger *slog.Logger) (*tier[K, V], error) {
	t := &tier[K, V]{
		name:   name,
		cost:   cost,
		m:      m,
		logger: logger,
	}
	rc, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters:        numCounters,
		MaxCost:            maxCost,
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
		OnReject: func(item *ristretto.Item[V]) {
			t.rejected.Store(true)
			logger.Debug("cache entry rejected", "tier", name, "cost", item.Cost)
		},
	})
	if err != nil {
		return nil, err
	}
	t.rc = rc
	m.observe(name, rc.Metrics)
	return t, nil
}

// fingerprint returns the lookup key for k, recording fallback use.
func (t *tier[K, V]) fingerprint(ctx context.Context, k K) string {
	r := fingerprint.Of(k)
	if r.Fallback {
		t.m.fallbacks.WithLabelValues(t.name).Inc()
		t.logger.DebugContext(ctx, "using fallback fingerprint", "tier", t.name, "error", r.Err)
	}
	return r.Value
}

// get is a pure read; it never computes or stores a value.
func (t *tier[K, V]) get(ctx context.Context, k K) (V, bool) {
	fp := t.fingerprint(ctx, k)

	t.mu.RLock()
	v, ok := t.rc.Get(fp)
	t.mu.RUnlock()

	if ok {
		t.m.requests.WithLabelValues(t.name, "hit").Inc()
	} else {
		t.m.requests.WithLabelValues(t.name, "miss").Inc()
	}
	return v, ok
}

// put inserts or replaces the value for k. It returns once the write is
// visible to later gets. A full tier may turn a new entry down instead of
// evicting for it, and an entry costing more than the whole tier is never
// stored; both count as rejects and a later get misses.
func (t *tier[K, V]) put(ctx context.Context, k K, v V) {
	fp := t.fingerprint(ctx, k)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.rejected.Store(false)
	if !t.rc.Set(fp, v, max(t.cost(v), 1)) {
		t.reject(ctx)
		return
	}
	// Wait drains the set buffer, so OnReject has run for this item if it
	// was turned down.
	t.rc.Wait()
	if t.rejected.Load() {
		t.reject(ctx)
		return
	}
	t.m.writes.WithLabelValues(t.name).Inc()
}

func (t *tier[K, V]) reject(ctx context.Context) {
	t.m.rejects.WithLabelValues(t.name).Inc()
	t.logger.DebugContext(ctx, "cache write dropped", "tier", t.name)
}

func (t *tier[K, V]) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rc.Close()
}
