package materialize

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"nanoconv/internal/record"
	"nanoconv/internal/schema"
)

// mapRow is an in-memory Row keyed by column name.
type mapRow map[string]any

func (r mapRow) Value(col string) (any, error) {
	v, ok := r[col]
	if !ok {
		return nil, fmt.Errorf("no column %q", col)
	}
	return v, nil
}

func nanoSchema(tb testing.TB) *schema.Schema {
	tb.Helper()
	s, err := schema.Classify([]schema.Column{
		{Name: "run", TypeName: "UInt_t"},
		{Name: "nJet", TypeName: "UInt_t"},
		{Name: "Jet_pt", TypeName: "Float_t"},
		{Name: "Jet_eta", TypeName: "Float_t"},
		{Name: "Muon_px", TypeName: "Float_t"},
		{Name: "Muon_py", TypeName: "Float_t"},
	}, schema.Options{})
	if err != nil {
		tb.Fatalf("Classify: %v", err)
	}
	return s
}

func TestEntry_Basic(t *testing.T) {
	t.Parallel()

	m := New(nanoSchema(t))
	e, err := m.Entry(5, mapRow{
		"run":     uint32(1),
		"nJet":    uint32(2),
		"Jet_pt":  []float32{40, 25},
		"Jet_eta": []float32{0.1, -1.2},
		"Muon_px": float32(3),
		"Muon_py": float32(4),
	})
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}

	if e.Index != 5 {
		t.Fatalf("Index = %d, want 5", e.Index)
	}
	if !reflect.DeepEqual(e.Scalars, []any{uint32(1)}) {
		t.Fatalf("Scalars = %#v", e.Scalars)
	}
	if !reflect.DeepEqual(e.Groups, []record.Record{{float32(3), float32(4)}}) {
		t.Fatalf("Groups = %#v", e.Groups)
	}
	want := [][]record.Record{{
		{float32(40), float32(0.1)},
		{float32(25), float32(-1.2)},
	}}
	if !reflect.DeepEqual(e.Collections, want) {
		t.Fatalf("Collections = %#v, want %#v", e.Collections, want)
	}
}

// TestEntry_JaggedLengthFidelity checks the collection length equals the
// counter for a range of counts, including zero.
func TestEntry_JaggedLengthFidelity(t *testing.T) {
	t.Parallel()

	m := New(nanoSchema(t))
	for n := 0; n < 6; n++ {
		pts := make([]float32, n)
		etas := make([]float64, n) // converted to float32 by the schema type
		for i := range pts {
			pts[i] = float32(i)
			etas[i] = float64(i) / 10
		}
		e, err := m.Entry(int64(n), mapRow{
			"run": uint32(1), "nJet": int32(n), "Jet_pt": pts, "Jet_eta": etas,
			"Muon_px": float32(0), "Muon_py": float32(0),
		})
		if err != nil {
			t.Fatalf("n=%d: Entry: %v", n, err)
		}
		if got := len(e.Collections[0]); got != n {
			t.Fatalf("n=%d: %d elements", n, got)
		}
		for i, el := range e.Collections[0] {
			if el[1] != float32(float64(i)/10) {
				t.Fatalf("n=%d: eta[%d] = %#v", n, i, el[1])
			}
		}
	}
}

// TestEntry_ZeroCountEmpty covers a zero counter: no elements and no error,
// even when attribute columns are empty slices.
func TestEntry_ZeroCountEmpty(t *testing.T) {
	t.Parallel()

	m := New(nanoSchema(t))
	e, err := m.Entry(0, mapRow{
		"run": uint32(1), "nJet": uint32(0), "Jet_pt": []float32{}, "Jet_eta": []float32{},
		"Muon_px": float32(1), "Muon_py": float32(2),
	})
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if e.Collections[0] == nil || len(e.Collections[0]) != 0 {
		t.Fatalf("Jet = %#v, want empty non-nil", e.Collections[0])
	}
}

// TestEntry_ConsistencyError: nJet=3, Jet_pt has 3 elements, Jet_eta has 2
// at row 5.
func TestEntry_ConsistencyError(t *testing.T) {
	t.Parallel()

	m := New(nanoSchema(t))
	_, err := m.Entry(5, mapRow{
		"run": uint32(1), "nJet": uint32(3),
		"Jet_pt": []float32{1, 2, 3}, "Jet_eta": []float32{1, 2},
		"Muon_px": float32(1), "Muon_py": float32(2),
	})
	var ce *ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConsistencyError", err)
	}
	if ce.Row != 5 || ce.Collection != "Jet" || ce.Column != "Jet_eta" || ce.Want != 3 || ce.Got != 2 {
		t.Fatalf("ConsistencyError = %+v", ce)
	}
}

// TestEntry_HugeCounter: a corrupt counter far above the attribute lengths
// is reported before any element storage is sized from it.
func TestEntry_HugeCounter(t *testing.T) {
	t.Parallel()

	m := New(nanoSchema(t))
	_, err := m.Entry(5, mapRow{
		"run": uint32(1), "nJet": int64(1) << 50,
		"Jet_pt": []float32{1, 2, 3}, "Jet_eta": []float32{1, 2, 3},
		"Muon_px": float32(1), "Muon_py": float32(2),
	})
	var ce *ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConsistencyError", err)
	}
	if ce.Row != 5 || ce.Column != "Jet_pt" || int64(ce.Want) != 1<<50 || ce.Got != 3 {
		t.Fatalf("ConsistencyError = %+v", ce)
	}
}

// TestEntry_CounterWithoutAttributes: a collection with no attribute
// columns still gets one empty element per counted entry.
func TestEntry_CounterWithoutAttributes(t *testing.T) {
	t.Parallel()

	s, err := schema.Classify([]schema.Column{
		{Name: "run", TypeName: "UInt_t"},
		{Name: "nJet", TypeName: "UInt_t"},
	}, schema.Options{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	e, err := New(s).Entry(0, mapRow{"run": uint32(1), "nJet": uint32(3)})
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if len(e.Collections[0]) != 3 {
		t.Fatalf("Jet = %#v, want 3 empty elements", e.Collections[0])
	}
	for _, r := range e.Collections[0] {
		if len(r) != 0 {
			t.Fatalf("element = %#v, want no fields", r)
		}
	}
}

func TestEntry_BadCounterAndScalarAttribute(t *testing.T) {
	t.Parallel()

	m := New(nanoSchema(t))
	base := func() mapRow {
		return mapRow{
			"run": uint32(1), "nJet": uint32(1), "Jet_pt": []float32{1}, "Jet_eta": []float32{1},
			"Muon_px": float32(1), "Muon_py": float32(2),
		}
	}

	r := base()
	r["nJet"] = int32(-2)
	var ce *ConsistencyError
	if _, err := m.Entry(1, r); !errors.As(err, &ce) || ce.Reason == "" {
		t.Fatalf("negative counter: err = %v", err)
	}

	r = base()
	r["Jet_eta"] = float32(1)
	if _, err := m.Entry(2, r); !errors.As(err, &ce) || ce.Got != -1 {
		t.Fatalf("scalar attribute: err = %v", err)
	}

	r = base()
	delete(r, "Muon_py")
	_, err := m.Entry(3, r)
	if err == nil || errors.As(err, &ce) {
		t.Fatalf("missing column: err = %v, want plain error", err)
	}
}

func TestEntry_FreshPerRow(t *testing.T) {
	t.Parallel()

	m := New(nanoSchema(t))
	row := mapRow{
		"run": uint32(1), "nJet": uint32(1), "Jet_pt": []float32{1}, "Jet_eta": []float32{1},
		"Muon_px": float32(1), "Muon_py": float32(2),
	}
	a, err := m.Entry(0, row)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Entry(1, row)
	if err != nil {
		t.Fatal(err)
	}
	a.Groups[0][0] = float32(99)
	if b.Groups[0][0] != float32(1) {
		t.Fatal("entries share group storage")
	}
}
