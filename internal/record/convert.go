package record

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"nanoconv/internal/schema"
)

// Convert returns v as the canonical Go type for t: bool, int8 ... uint64,
// float32, float64 or string. Unknown passes v through unchanged.
//
// Integer targets reject fractional and out-of-range values; float targets
// accept any numeric input.
func Convert(v any, t schema.Type) (any, error) {
	if t == schema.Unknown || v == nil {
		return v, nil
	}
	switch t {
	case schema.Bool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(x)
		}
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return i != 0, nil
	case schema.String:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
		return fmt.Sprint(v), nil
	case schema.Float32:
		f, err := toFloat64(v)
		return float32(f), err
	case schema.Float64:
		return toFloat64(v)
	}

	// Integers.
	if u, ok := v.(uint64); ok && t == schema.Uint64 {
		return u, nil
	}
	i, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	lo, hi := intRange(t)
	if i < lo || i > hi {
		return nil, fmt.Errorf("record: value %d out of range for %s", i, t)
	}
	switch t {
	case schema.Int8:
		return int8(i), nil
	case schema.Uint8:
		return uint8(i), nil
	case schema.Int16:
		return int16(i), nil
	case schema.Uint16:
		return uint16(i), nil
	case schema.Int32:
		return int32(i), nil
	case schema.Uint32:
		return uint32(i), nil
	case schema.Int64:
		return i, nil
	case schema.Uint64:
		return uint64(i), nil
	}
	return nil, fmt.Errorf("record: unsupported type %s", t)
}

func intRange(t schema.Type) (lo, hi int64) {
	switch t {
	case schema.Int8:
		return math.MinInt8, math.MaxInt8
	case schema.Uint8:
		return 0, math.MaxUint8
	case schema.Int16:
		return math.MinInt16, math.MaxInt16
	case schema.Uint16:
		return 0, math.MaxUint16
	case schema.Int32:
		return math.MinInt32, math.MaxInt32
	case schema.Uint32:
		return 0, math.MaxUint32
	case schema.Uint64:
		return 0, math.MaxInt64
	}
	return math.MinInt64, math.MaxInt64
}

// Int converts a counter value to a non-negative int.
func Int(v any) (int, error) {
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("record: negative count %d", i)
	}
	return int(i), nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("record: %q is not a number", x.String())
		}
		return floatToInt64(f)
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("record: %q is not an integer", x)
		}
		return i, nil
	}
	return 0, fmt.Errorf("record: %T is not an integer", v)
}

func uintToInt64(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("record: value %d overflows int64", u)
	}
	return int64(u), nil
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("record: %v is not an integer", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	case uint64:
		return float64(x), nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("record: %T is not a number", v)
	}
	return float64(i), nil
}

// Len returns the element count of a slice value. ok is false when v is not
// a slice or array.
func Len(v any) (n int, ok bool) {
	switch x := v.(type) {
	case []any:
		return len(x), true
	case []float32:
		return len(x), true
	case []float64:
		return len(x), true
	case []int32:
		return len(x), true
	case []uint32:
		return len(x), true
	case []int64:
		return len(x), true
	case []bool:
		return len(x), true
	case []uint8:
		return len(x), true
	case []int8:
		return len(x), true
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	if k := rv.Kind(); k == reflect.Slice || k == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}

// Index returns element i of a slice value. The caller checks bounds with Len.
func Index(v any, i int) any {
	switch x := v.(type) {
	case []any:
		return x[i]
	case []float32:
		return x[i]
	case []float64:
		return x[i]
	case []int32:
		return x[i]
	case []uint32:
		return x[i]
	case []int64:
		return x[i]
	case []bool:
		return x[i]
	case []uint8:
		return x[i]
	case []int8:
		return x[i]
	}
	return reflect.ValueOf(v).Index(i).Interface()
}
