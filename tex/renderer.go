package tex

import (
	"context"
	"image"

	"github.com/Keksclan/texcache/svg"
)

// Output is what the renderer produces for one formula.
type Output struct {
	// Markup is the SVG document.
	Markup string

	// ErrorText is set when the renderer reported a recoverable error but
	// still returned best-effort markup.
	ErrorText string
}

// Renderer converts a formula to SVG markup.
type Renderer interface {
	Render(ctx context.Context, formula string, conv ConversionOptions, input InputOptions) (Output, error)
}

// RendererFunc adapts an ordinary function to the [Renderer] interface.
type RendererFunc func(ctx context.Context, formula string, conv ConversionOptions, input InputOptions) (Output, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, formula string, conv ConversionOptions, input InputOptions) (Output, error) {
	return f(ctx, formula, conv, input)
}

// Rasterizer decodes an SVG into an image sized for the given font x-height.
type Rasterizer interface {
	Rasterize(ctx context.Context, s svg.SVG, xHeight float64) (image.Image, error)
}

// RasterizerFunc adapts an ordinary function to the [Rasterizer] interface.
type RasterizerFunc func(ctx context.Context, s svg.SVG, xHeight float64) (image.Image, error)

// Rasterize calls f.
func (f RasterizerFunc) Rasterize(ctx context.Context, s svg.SVG, xHeight float64) (image.Image, error) {
	return f(ctx, s, xHeight)
}
