package cache

import (
	"github.com/Keksclan/texcache/fingerprint"
	"github.com/Keksclan/texcache/svg"
	"github.com/Keksclan/texcache/tex"
)

// Tier namespaces. They are the discriminator suffix of every fingerprint.
const (
	TierMarkup = "svg"
	TierImage  = "image"
)

// MarkupKey addresses the markup tier: everything the renderer's output
// depends on.
type MarkupKey struct {
	Formula    string                `json:"formula"`
	Conversion tex.ConversionOptions `json:"conversionOptions"`
	Input      tex.InputOptions      `json:"texOptions"`
}

func (MarkupKey) Namespace() string { return TierMarkup }

// FallbackKey is the formula text. Two option sets for the same formula share
// a fallback fingerprint.
func (k MarkupKey) FallbackKey() string { return k.Formula }

// ImageKey addresses the image tier: the rendered SVG and the x-height it is
// rasterized for.
type ImageKey struct {
	SVG     svg.SVG `json:"svg"`
	XHeight float64 `json:"xHeight"`
}

func (ImageKey) Namespace() string { return TierImage }

// FallbackKey is the SVG markup.
func (k ImageKey) FallbackKey() string { return k.SVG.Markup() }

var (
	_ fingerprint.Key = MarkupKey{}
	_ fingerprint.Key = ImageKey{}
)
