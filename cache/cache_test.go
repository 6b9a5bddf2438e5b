package cache

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Keksclan/texcache/svg"
	"github.com/Keksclan/texcache/tex"
)

func mustNew(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustSVG(t *testing.T, markup string) svg.SVG {
	t.Helper()
	s, err := svg.Parse(markup, "")
	if err != nil {
		t.Fatalf("svg.Parse: %v", err)
	}
	return s
}

func markupKey(formula string) MarkupKey {
	return MarkupKey{
		Formula:    formula,
		Conversion: tex.DefaultConversionOptions(),
		Input:      tex.DefaultInputOptions(),
	}
}

func TestStore_MarkupGetPut(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()
	key := markupKey(`x^2`)

	// Miss on an empty store.
	if v, ok := s.Markup(ctx, key); ok || v != nil {
		t.Fatalf("expected miss, got %q", v)
	}

	s.PutMarkup(ctx, []byte("v1"), key)
	v, ok := s.Markup(ctx, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if string(v) != "v1" {
		t.Fatalf("got %q, want %q", v, "v1")
	}
}

func TestStore_MarkupLastWriteWins(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()
	key := markupKey(`\sqrt{2}`)

	s.PutMarkup(ctx, []byte("first"), key)
	s.PutMarkup(ctx, []byte("second"), key)

	v, ok := s.Markup(ctx, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if string(v) != "second" {
		t.Fatalf("got %q, want %q", v, "second")
	}
}

func TestStore_DistinctFormulasHaveIndependentSlots(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()

	s.PutMarkup(ctx, []byte("alpha"), markupKey(`\alpha`))
	s.PutMarkup(ctx, []byte("beta"), markupKey(`\beta`))

	if v, _ := s.Markup(ctx, markupKey(`\alpha`)); string(v) != "alpha" {
		t.Fatalf(`\alpha: got %q`, v)
	}
	if v, _ := s.Markup(ctx, markupKey(`\beta`)); string(v) != "beta" {
		t.Fatalf(`\beta: got %q`, v)
	}
}

func TestStore_InvalidUTF8FormulasHaveIndependentSlots(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()

	s.PutMarkup(ctx, []byte("ff"), markupKey("x\xff"))
	if _, ok := s.Markup(ctx, markupKey("x\xfe")); ok {
		t.Fatal("formulas differing only in invalid bytes must not share a slot")
	}
	s.PutMarkup(ctx, []byte("fe"), markupKey("x\xfe"))
	if v, _ := s.Markup(ctx, markupKey("x\xff")); string(v) != "ff" {
		t.Fatalf("got %q, want %q", v, "ff")
	}
}

func TestStore_OptionsAreSemanticFields(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()

	inline := markupKey(`x`)
	display := markupKey(`x`)
	display.Conversion.Display = true

	s.PutMarkup(ctx, []byte("inline"), inline)
	if _, ok := s.Markup(ctx, display); ok {
		t.Fatal("display key must not hit the inline entry")
	}
}

func TestStore_MarkupValuesAreCopied(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()
	key := markupKey(`y`)

	in := []byte("abc")
	s.PutMarkup(ctx, in, key)
	in[0] = 'X'

	out, _ := s.Markup(ctx, key)
	out[1] = 'Y'

	again, _ := s.Markup(ctx, key)
	if string(again) != "abc" {
		t.Fatalf("stored value was mutated: %q", again)
	}
}

func TestStore_ImageGetPut(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()
	key := ImageKey{SVG: mustSVG(t, `<svg width="2ex" height="1ex"></svg>`), XHeight: 7}

	if _, ok := s.Image(ctx, key); ok {
		t.Fatal("expected miss")
	}

	img := image.NewRGBA(image.Rect(0, 0, 14, 7))
	img.Set(1, 1, color.Black)
	s.PutImage(ctx, img, key)

	got, ok := s.Image(ctx, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got != image.Image(img) {
		t.Fatal("expected the stored image")
	}

	// A different x-height is a different slot.
	if _, ok := s.Image(ctx, ImageKey{SVG: key.SVG, XHeight: 8}); ok {
		t.Fatal("expected miss for another x-height")
	}
}

func TestStore_PutNilImageIgnored(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()
	key := ImageKey{SVG: mustSVG(t, `<svg width="1ex" height="1ex"></svg>`), XHeight: 1}

	s.PutImage(ctx, nil, key)
	if _, ok := s.Image(ctx, key); ok {
		t.Fatal("nil image must not be stored")
	}
}

func TestStore_FallbackFingerprint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := mustNew(t, WithRegisterer(reg))
	ctx := t.Context()

	a := markupKey(`z`)
	a.Conversion.Scale = math.NaN()
	b := markupKey(`z`)
	b.Conversion.Scale = math.NaN()
	b.Conversion.Display = true

	s.PutMarkup(ctx, []byte("a"), a)
	if v, ok := s.Markup(ctx, a); !ok || string(v) != "a" {
		t.Fatalf("fallback key must still cache, got %q ok=%v", v, ok)
	}

	// Both keys degrade to the formula text and share a slot.
	s.PutMarkup(ctx, []byte("b"), b)
	if v, _ := s.Markup(ctx, a); string(v) != "b" {
		t.Fatalf("expected colliding fallback slot, got %q", v)
	}

	if n := testutil.ToFloat64(s.markup.m.fallbacks.WithLabelValues(TierMarkup)); n != 4 {
		t.Fatalf("fallbacks = %v, want 4", n)
	}
}

func TestStore_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := mustNew(t, WithRegisterer(reg))
	ctx := t.Context()
	key := markupKey(`m`)

	s.Markup(ctx, key)
	s.PutMarkup(ctx, []byte("m"), key)
	s.Markup(ctx, key)
	s.Markup(ctx, key)

	req := s.markup.m.requests
	if n := testutil.ToFloat64(req.WithLabelValues(TierMarkup, "miss")); n != 1 {
		t.Fatalf("misses = %v, want 1", n)
	}
	if n := testutil.ToFloat64(req.WithLabelValues(TierMarkup, "hit")); n != 2 {
		t.Fatalf("hits = %v, want 2", n)
	}
	if n := testutil.ToFloat64(s.markup.m.writes.WithLabelValues(TierMarkup)); n != 1 {
		t.Fatalf("writes = %v, want 1", n)
	}

	// A second store on the same registry reuses the collectors.
	mustNew(t, WithRegisterer(reg))
}

func TestStore_ConcurrentCallersSeeTheirOwnWrites(t *testing.T) {
	s := mustNew(t)
	ctx := t.Context()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := markupKey(fmt.Sprintf(`x_{%d}`, i))
			want := fmt.Sprintf("v%d", i)
			s.PutMarkup(ctx, []byte(want), key)
			if got, ok := s.Markup(ctx, key); !ok || string(got) != want {
				errs <- fmt.Errorf("caller %d: got %q ok=%v", i, got, ok)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestShared_ReturnsSameStore(t *testing.T) {
	if Shared() != Shared() {
		t.Fatal("Shared must return one store per process")
	}
}

func TestTier_RejectedWriteIsNotCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	tr, err := newTier[MarkupKey]("small", 8, markupCost, m, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("newTier: %v", err)
	}
	t.Cleanup(tr.close)
	ctx := t.Context()
	key := markupKey(`\int`)

	// Larger than the whole tier: the admission policy turns it down.
	tr.put(ctx, key, make([]byte, 64))
	if _, ok := tr.get(ctx, key); ok {
		t.Fatal("oversized entry must not be stored")
	}
	if n := testutil.ToFloat64(m.writes.WithLabelValues("small")); n != 0 {
		t.Fatalf("writes = %v, want 0", n)
	}
	if n := testutil.ToFloat64(m.rejects.WithLabelValues("small")); n != 1 {
		t.Fatalf("rejects = %v, want 1", n)
	}

	tr.put(ctx, key, []byte("ok"))
	if v, ok := tr.get(ctx, key); !ok || string(v) != "ok" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
	if n := testutil.ToFloat64(m.writes.WithLabelValues("small")); n != 1 {
		t.Fatalf("writes = %v, want 1", n)
	}
}
