package svg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Unit is the unit of an SVG length attribute.
type Unit string

const (
	UnitEx   Unit = "ex"
	UnitEm   Unit = "em"
	UnitPt   Unit = "pt"
	UnitPx   Unit = "px"
	UnitUser Unit = ""
)

// emPerEx is the renderer's em:ex ratio (em=16px, ex=8px).
const emPerEx = 2

// Length is a dimension in the markup's native unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ParseLength parses an attribute value such as "1.76ex" or "10pt". A value
// without a unit is in SVG user units.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	num, unit := s, UnitUser
	for _, u := range []Unit{UnitEx, UnitEm, UnitPt, UnitPx} {
		if strings.HasSuffix(strings.ToLower(s), string(u)) {
			num, unit = s[:len(s)-len(u)], u
			break
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return Length{}, fmt.Errorf("%w: length %q", ErrGeometry, s)
	}
	return Length{Value: v, Unit: unit}, nil
}

// ToPoints converts the length to points for a font with the given x-height.
// Invalid metrics (NaN, negative) propagate unchanged.
func (l Length) ToPoints(xHeight float64) float64 {
	switch l.Unit {
	case UnitEx:
		return l.Value * xHeight
	case UnitEm:
		return l.Value * emPerEx * xHeight
	case UnitPt:
		return l.Value
	default: // px and user units are CSS pixels
		return l.Value * 0.75
	}
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + string(l.Unit)
}

// Rect is the SVG viewBox.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Geometry holds the dimensions of a rendered formula.
type Geometry struct {
	Width  Length `json:"width"`
	Height Length `json:"height"`

	// VerticalAlignment is the baseline offset (the depth below the baseline
	// is -VerticalAlignment when negative).
	VerticalAlignment Length `json:"verticalAlignment"`

	ViewBox Rect `json:"viewBox"`
}

// ParseGeometry extracts the geometry from the first <svg> element in markup.
// Width and height are required; vertical alignment and viewBox are optional.
func ParseGeometry(markup string) (Geometry, error) {
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return Geometry{}, fmt.Errorf("%w: missing svg element", ErrGeometry)
		}
		if err != nil {
			return Geometry{}, fmt.Errorf("%w: %w", ErrGeometry, err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "svg" {
			return geometryFromAttrs(se.Attr)
		}
	}
}

func geometryFromAttrs(attrs []xml.Attr) (Geometry, error) {
	var (
		g                     Geometry
		haveWidth, haveHeight bool
		err                   error
	)
	for _, a := range attrs {
		switch a.Name.Local {
		case "width":
			if g.Width, err = ParseLength(a.Value); err != nil {
				return Geometry{}, err
			}
			haveWidth = true
		case "height":
			if g.Height, err = ParseLength(a.Value); err != nil {
				return Geometry{}, err
			}
			haveHeight = true
		case "style":
			if v, ok := styleProperty(a.Value, "vertical-align"); ok {
				if g.VerticalAlignment, err = ParseLength(v); err != nil {
					return Geometry{}, err
				}
			}
		case "viewBox":
			if g.ViewBox, err = parseViewBox(a.Value); err != nil {
				return Geometry{}, err
			}
		}
	}
	if !haveWidth || !haveHeight {
		return Geometry{}, fmt.Errorf("%w: svg element has no width or height", ErrGeometry)
	}
	return g, nil
}

// styleProperty returns the value of prop in an inline CSS declaration list.
func styleProperty(style, prop string) (string, bool) {
	for decl := range strings.SplitSeq(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(name) == prop {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func parseViewBox(s string) (Rect, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("%w: viewBox %q", ErrGeometry, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return Rect{}, fmt.Errorf("%w: viewBox %q: %w", ErrGeometry, s, err)
		}
		v[i] = f
	}
	return Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
