package svg

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the serialized record. They must not be reused.
//
//	message SVG      { bytes data = 1; Geometry geometry = 2; string error_text = 3; }
//	message Geometry { Length width = 1; Length height = 2; Length vertical_alignment = 3; Rect view_box = 4; }
//	message Length   { double value = 1; string unit = 2; }
//	message Rect     { double x = 1; double y = 2; double width = 3; double height = 4; }
const (
	fieldData      protowire.Number = 1
	fieldGeometry  protowire.Number = 2
	fieldErrorText protowire.Number = 3

	fieldWidth             protowire.Number = 1
	fieldHeight            protowire.Number = 2
	fieldVerticalAlignment protowire.Number = 3
	fieldViewBox           protowire.Number = 4

	fieldValue protowire.Number = 1
	fieldUnit  protowire.Number = 2
)

var errWireType = errors.New("unexpected wire type")

// Encode serializes s in protocol buffer wire format. [Decode] reverses it.
func (s SVG) Encode() []byte {
	b := make([]byte, 0, len(s.data)+128)
	b = protowire.AppendTag(b, fieldData, protowire.BytesType)
	b = protowire.AppendBytes(b, s.data)
	b = protowire.AppendTag(b, fieldGeometry, protowire.BytesType)
	b = protowire.AppendBytes(b, appendGeometry(nil, s.geometry))
	if s.errorText != "" {
		b = protowire.AppendTag(b, fieldErrorText, protowire.BytesType)
		b = protowire.AppendString(b, s.errorText)
	}
	return b
}

// Decode parses a value previously produced by [SVG.Encode].
func Decode(b []byte) (SVG, error) {
	var (
		s                  SVG
		haveData, haveGeom bool
	)
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldData:
			v, n, err := consumeBytes(typ, b)
			s.data, haveData = bytes.Clone(v), true
			return n, err
		case fieldGeometry:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			s.geometry, err = decodeGeometry(v)
			haveGeom = true
			return n, err
		case fieldErrorText:
			v, n, err := consumeBytes(typ, b)
			s.errorText = string(v)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return SVG{}, fmt.Errorf("%w: %w", ErrDeserialization, err)
	}
	if !haveData || !haveGeom {
		return SVG{}, fmt.Errorf("%w: missing data or geometry", ErrDeserialization)
	}
	return s, nil
}

func appendGeometry(b []byte, g Geometry) []byte {
	for _, f := range []struct {
		num protowire.Number
		l   Length
	}{
		{fieldWidth, g.Width},
		{fieldHeight, g.Height},
		{fieldVerticalAlignment, g.VerticalAlignment},
	} {
		b = protowire.AppendTag(b, f.num, protowire.BytesType)
		b = protowire.AppendBytes(b, appendLength(nil, f.l))
	}
	b = protowire.AppendTag(b, fieldViewBox, protowire.BytesType)
	return protowire.AppendBytes(b, appendRect(nil, g.ViewBox))
}

func appendLength(b []byte, l Length) []byte {
	b = appendDouble(b, fieldValue, l.Value)
	b = protowire.AppendTag(b, fieldUnit, protowire.BytesType)
	return protowire.AppendString(b, string(l.Unit))
}

func appendRect(b []byte, r Rect) []byte {
	for i, v := range [...]float64{r.X, r.Y, r.Width, r.Height} {
		b = appendDouble(b, protowire.Number(i+1), v)
	}
	return b
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func decodeGeometry(b []byte) (Geometry, error) {
	var g Geometry
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var dst *Length
		switch num {
		case fieldWidth:
			dst = &g.Width
		case fieldHeight:
			dst = &g.Height
		case fieldVerticalAlignment:
			dst = &g.VerticalAlignment
		case fieldViewBox:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			g.ViewBox, err = decodeRect(v)
			return n, err
		default:
			return 0, nil
		}
		v, n, err := consumeBytes(typ, b)
		if err != nil {
			return n, err
		}
		*dst, err = decodeLength(v)
		return n, err
	})
	return g, err
}

func decodeLength(b []byte) (Length, error) {
	var l Length
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldValue:
			v, n, err := consumeDouble(typ, b)
			l.Value = v
			return n, err
		case fieldUnit:
			v, n, err := consumeBytes(typ, b)
			l.Unit = Unit(v)
			return n, err
		}
		return 0, nil
	})
	return l, err
}

func decodeRect(b []byte) (Rect, error) {
	var v [4]float64
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num < 1 || num > 4 {
			return 0, nil
		}
		f, n, err := consumeDouble(typ, b)
		v[num-1] = f
		return n, err
	})
	return Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, err
}

// fields walks the top-level fields of a message. visit returns the number of
// bytes it consumed, or 0 to have the field skipped.
func fields(b []byte, visit func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeDouble(typ protowire.Type, b []byte) (float64, int, error) {
	if typ != protowire.Fixed64Type {
		return 0, 0, errWireType
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return math.Float64frombits(v), n, nil
}
