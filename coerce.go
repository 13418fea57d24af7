package typedconv

import (
	"math"

	json "github.com/goccy/go-json"
)

// ConvertFunc coerces a canonical primitive value into the target type.
type ConvertFunc func(v any) (any, error)

// Conversion is one entry of the coercion table consulted when a primitive
// value does not already have the target type. Custom tables replace the
// defaults wholesale; pass an empty non-nil slice to disable all coercion.
type Conversion struct {
	From Primitive
	To   Primitive
	Fn   ConvertFunc
}

// DefaultConversions returns the built-in table: str -> Path, int -> float,
// Path -> str. Notably there is no float -> int entry; narrowing never
// happens implicitly.
func DefaultConversions() []Conversion {
	return []Conversion{
		{From: PrimString, To: PrimPath, Fn: func(v any) (any, error) { return Path(v.(string)), nil }},
		{From: PrimInt, To: PrimFloat, Fn: func(v any) (any, error) { return float64(v.(int64)), nil }},
		{From: PrimPath, To: PrimString, Fn: func(v any) (any, error) { return string(v.(Path)), nil }},
	}
}

func lookupConversion(table []Conversion, from, to Primitive) (ConvertFunc, bool) {
	for _, c := range table {
		if c.From == from && c.To == to {
			return c.Fn, true
		}
	}
	return nil, false
}

// classifyPrimitive reports the primitive kind of a raw value and its
// canonical form: integers normalize to int64, floats to float64, and
// json.Number narrows to int64 when integral. Non-primitive values report
// ok=false.
func classifyPrimitive(v any) (Primitive, any, bool) {
	switch t := v.(type) {
	case bool:
		return PrimBool, t, true
	case int:
		return PrimInt, int64(t), true
	case int8:
		return PrimInt, int64(t), true
	case int16:
		return PrimInt, int64(t), true
	case int32:
		return PrimInt, int64(t), true
	case int64:
		return PrimInt, t, true
	case uint:
		return classifyUint(uint64(t))
	case uint8:
		return PrimInt, int64(t), true
	case uint16:
		return PrimInt, int64(t), true
	case uint32:
		return PrimInt, int64(t), true
	case uint64:
		return classifyUint(t)
	case float32:
		return PrimFloat, float64(t), true
	case float64:
		return PrimFloat, t, true
	case string:
		return PrimString, t, true
	case Path:
		return PrimPath, t, true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return PrimInt, n, true
		}
		if f, err := t.Float64(); err == nil {
			return PrimFloat, f, true
		}
		return 0, nil, false
	default:
		return 0, nil, false
	}
}

func classifyUint(u uint64) (Primitive, any, bool) {
	if u > math.MaxInt64 {
		return PrimFloat, float64(u), true
	}
	return PrimInt, int64(u), true
}
