package wire

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidValue is returned when a value does not have the expected
// encoding.
var ErrInvalidValue = errors.New("invalid value encoding")

// EncodeDPI encodes a resolution value: a single number when both axes are
// equal, otherwise [x, y].
func EncodeDPI(x, y uint32) any {
	if x == y {
		return x
	}
	return []uint32{x, y}
}

// DecodeDPI decodes a single number (both axes) or an [x, y] pair.
func DecodeDPI(v any) (x, y uint32, err error) {
	if n, ok := ExtractUint(v); ok {
		if n > math.MaxUint32 {
			return 0, 0, fmt.Errorf("%w: dpi %d", ErrInvalidValue, n)
		}
		return uint32(n), uint32(n), nil
	}
	pair, ok := ExtractUintSlice(v)
	if !ok || len(pair) != 2 || pair[0] > math.MaxUint32 || pair[1] > math.MaxUint32 {
		return 0, 0, fmt.Errorf("%w: dpi must be a number or [x, y]", ErrInvalidValue)
	}
	return uint32(pair[0]), uint32(pair[1]), nil
}

// Mapping is the wire form of a button mapping.
type Mapping struct {
	Type  uint32
	Value uint32

	// Macro holds [event type, keycode] pairs for macro mappings.
	Macro [][2]uint32
}

// mappingWire is the CBOR layout of a Mapping.
type mappingWire struct {
	Type  uint32 `cbor:"1,keyasint"`
	Value any    `cbor:"2,keyasint"`
}

// EncodeMapping encodes m as {1: type, 2: value}. macro selects whether the
// value is the macro event list or the scalar value. Type 0 (none) carries a
// null value.
func EncodeMapping(m Mapping, macro bool) any {
	w := mappingWire{Type: m.Type, Value: m.Value}
	switch {
	case m.Type == 0:
		w.Value = nil
	case macro:
		events := make([][]uint32, len(m.Macro))
		for i, ev := range m.Macro {
			events[i] = []uint32{ev[0], ev[1]}
		}
		w.Value = events
	}
	return w
}

// DecodeMapping decodes {1: type, 2: value}. A missing or null value
// decodes as zero.
func DecodeMapping(v any) (Mapping, error) {
	if w, ok := v.(mappingWire); ok {
		data, err := Marshal(w)
		if err != nil {
			return Mapping{}, err
		}
		var raw any
		if err := Unmarshal(data, &raw); err != nil {
			return Mapping{}, err
		}
		v = raw
	}

	m, ok := ExtractMap(v)
	if !ok {
		return Mapping{}, fmt.Errorf("%w: mapping must be {1: type, 2: value}", ErrInvalidValue)
	}
	t, ok := ExtractUint(m[1])
	if !ok || t > math.MaxUint32 {
		return Mapping{}, fmt.Errorf("%w: mapping type", ErrInvalidValue)
	}
	out := Mapping{Type: uint32(t)}

	switch val := m[2].(type) {
	case nil:
	case []any:
		for i, item := range val {
			pair, ok := ExtractUintSlice(item)
			if !ok || len(pair) != 2 || pair[0] > math.MaxUint32 || pair[1] > math.MaxUint32 {
				return Mapping{}, fmt.Errorf("%w: macro event %d must be [type, keycode]", ErrInvalidValue, i)
			}
			out.Macro = append(out.Macro, [2]uint32{uint32(pair[0]), uint32(pair[1])})
		}
	default:
		n, ok := ExtractUint(val)
		if !ok || n > math.MaxUint32 {
			return Mapping{}, fmt.Errorf("%w: mapping value", ErrInvalidValue)
		}
		out.Value = uint32(n)
	}
	return out, nil
}

// EncodeColor encodes a color as [r, g, b].
func EncodeColor(r, g, b uint32) any {
	return []uint32{r, g, b}
}

// DecodeColor decodes [r, g, b].
func DecodeColor(v any) ([3]uint32, error) {
	arr, ok := ExtractUintSlice(v)
	if !ok || len(arr) != 3 {
		return [3]uint32{}, fmt.Errorf("%w: color must be [r, g, b]", ErrInvalidValue)
	}
	var c [3]uint32
	for i, n := range arr {
		if n > math.MaxUint32 {
			return [3]uint32{}, fmt.Errorf("%w: color channel %d", ErrInvalidValue, n)
		}
		c[i] = uint32(n)
	}
	return c, nil
}
