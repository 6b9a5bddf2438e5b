// Package svg holds the rendered markup value stored in the first cache tier:
// the raw SVG bytes, the geometry parsed from them once at construction, and
// any recoverable error text the renderer reported.
package svg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Errors returned while constructing an [SVG].
var (
	ErrGeometry        = errors.New("svg: unable to parse geometry")
	ErrEncoding        = errors.New("svg: markup is not valid UTF-8")
	ErrDeserialization = errors.New("svg: invalid serialized value")
)

// SVG is an immutable rendered formula. The zero value is empty and is not
// produced by any constructor.
type SVG struct {
	data      []byte
	geometry  Geometry
	errorText string
}

// Size is a width and height in points.
type Size struct {
	Width  float64
	Height float64
}

// Parse builds an SVG from renderer markup. errorText may be empty.
func Parse(markup, errorText string) (SVG, error) {
	g, err := ParseGeometry(markup)
	if err != nil {
		return SVG{}, err
	}
	if !utf8.ValidString(markup) {
		return SVG{}, ErrEncoding
	}
	return SVG{
		data:      []byte(markup),
		geometry:  g,
		errorText: errorText,
	}, nil
}

// Data returns a copy of the SVG bytes.
func (s SVG) Data() []byte { return bytes.Clone(s.data) }

// Markup returns the SVG as a string.
func (s SVG) Markup() string { return string(s.data) }

// Geometry returns the parsed dimensions.
func (s SVG) Geometry() Geometry { return s.geometry }

// ErrorText returns the renderer's error text, or "" when there was none.
func (s SVG) ErrorText() string { return s.errorText }

// SizeInPoints returns the rendered size for a font with the given x-height.
func (s SVG) SizeInPoints(xHeight float64) Size {
	return Size{
		Width:  s.geometry.Width.ToPoints(xHeight),
		Height: s.geometry.Height.ToPoints(xHeight),
	}
}

// Equal reports whether s and o hold the same bytes, geometry and error text.
func (s SVG) Equal(o SVG) bool {
	return bytes.Equal(s.data, o.data) &&
		s.geometry == o.geometry &&
		s.errorText == o.errorText
}

type jsonSVG struct {
	Data      []byte   `json:"data"`
	Geometry  Geometry `json:"geometry"`
	ErrorText string   `json:"errorText,omitempty"`
}

// MarshalJSON lets an SVG take part in canonical cache keys. Error text that
// is not valid UTF-8 is rejected rather than rewritten.
func (s SVG) MarshalJSON() ([]byte, error) {
	if !utf8.ValidString(s.errorText) {
		return nil, fmt.Errorf("%w: error text", ErrEncoding)
	}
	return json.Marshal(jsonSVG{Data: s.data, Geometry: s.geometry, ErrorText: s.errorText})
}

// UnmarshalJSON implements [json.Unmarshaler].
func (s *SVG) UnmarshalJSON(b []byte) error {
	var v jsonSVG
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrDeserialization, err)
	}
	*s = SVG{data: v.Data, geometry: v.Geometry, errorText: v.ErrorText}
	return nil
}
