package record

import (
	"encoding/json"
	"reflect"
	"testing"

	"nanoconv/internal/schema"
)

func TestConvert(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      any
		typ     schema.Type
		want    any
		wantErr bool
	}{
		{float64(1.5), schema.Float32, float32(1.5), false},
		{int32(7), schema.Float64, float64(7), false},
		{json.Number("12"), schema.Int32, int32(12), false},
		{json.Number("2.5"), schema.Float32, float32(2.5), false},
		{float64(3), schema.Uint8, uint8(3), false},
		{float64(3.2), schema.Int32, nil, true},
		{float64(1 << 63), schema.Int64, nil, true},
		{float64(-1 << 63), schema.Int64, int64(-1 << 63), false},
		{float32(1 << 63), schema.Int64, nil, true},
		{int64(300), schema.Uint8, nil, true},
		{int64(-1), schema.Uint32, nil, true},
		{uint64(1 << 63), schema.Uint64, uint64(1 << 63), false},
		{int64(1), schema.Bool, true, false},
		{"true", schema.Bool, true, false},
		{[]byte("abc"), schema.String, "abc", false},
		{int16(5), schema.String, "5", false},
		{"anything", schema.Unknown, "anything", false},
		{nil, schema.Int32, nil, false},
		{struct{}{}, schema.Int64, nil, true},
	}

	for _, tc := range cases {
		got, err := Convert(tc.in, tc.typ)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Convert(%#v, %s) = %#v, want error", tc.in, tc.typ, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Convert(%#v, %s): %v", tc.in, tc.typ, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Convert(%#v, %s) = %#v (%T), want %#v (%T)", tc.in, tc.typ, got, got, tc.want, tc.want)
		}
	}
}

func TestInt(t *testing.T) {
	t.Parallel()

	for _, v := range []any{uint32(4), int32(4), int64(4), float64(4), json.Number("4"), uint8(4)} {
		n, err := Int(v)
		if err != nil || n != 4 {
			t.Errorf("Int(%#v) = %d, %v; want 4, nil", v, n, err)
		}
	}
	for _, v := range []any{int32(-1), "x", 1.5, nil, float64(1 << 63)} {
		if _, err := Int(v); err == nil {
			t.Errorf("Int(%#v): want error", v)
		}
	}
}

type wrapped []float32

func TestLenIndex(t *testing.T) {
	t.Parallel()

	vals := []any{
		[]float32{1, 2, 3},
		[]any{1.0, 2.0, 3.0},
		[]uint16{1, 2, 3},
		wrapped{1, 2, 3},
		[3]int{1, 2, 3},
	}
	for _, v := range vals {
		n, ok := Len(v)
		if !ok || n != 3 {
			t.Fatalf("Len(%#v) = %d, %v", v, n, ok)
		}
		if got, err := Convert(Index(v, 2), schema.Float64); err != nil || got != float64(3) {
			t.Fatalf("Index(%#v, 2) = %#v, %v", v, got, err)
		}
	}
	if _, ok := Len(float32(1)); ok {
		t.Fatal("Len(scalar) reported a slice")
	}
	if _, ok := Len(nil); ok {
		t.Fatal("Len(nil) reported a slice")
	}
}
