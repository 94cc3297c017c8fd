// Package materialize builds one record.Entry per input row from a
// classified schema.
//
// The Materializer is generic over the schema: classification happens once,
// and each call to Entry only reads the columns the schema names and copies
// their values into a freshly allocated entry.
package materialize

import (
	"fmt"

	"nanoconv/internal/record"
	"nanoconv/internal/schema"
)

// Row gives access to the values of the current input row. Scalar columns
// yield a single value; jagged columns yield a slice.
type Row interface {
	Value(column string) (any, error)
}

// ConsistencyError reports a row whose jagged attribute columns disagree
// with their counter. It is fatal for the whole conversion.
type ConsistencyError struct {
	Row        int64
	Collection string
	Column     string
	Want       int // counter value
	Got        int // element count reported by Column, -1 if not a list

	// Reason is set when the counter value itself is unusable.
	Reason string
}

func (e *ConsistencyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("materialize: row %d: counter %q of collection %s: %s",
			e.Row, e.Column, e.Collection, e.Reason)
	}
	if e.Got < 0 {
		return fmt.Sprintf("materialize: row %d: column %q of collection %s is not a list (counter says %d)",
			e.Row, e.Column, e.Collection, e.Want)
	}
	return fmt.Sprintf("materialize: row %d: column %q has %d elements, counter of collection %s says %d",
		e.Row, e.Column, e.Got, e.Collection, e.Want)
}

// Materializer turns rows into entries for one schema. It holds no per-row
// state and is safe for concurrent use.
type Materializer struct {
	s *schema.Schema
}

// New returns a Materializer for s.
func New(s *schema.Schema) *Materializer {
	return &Materializer{s: s}
}

// Entry reads every classified column of row and returns the entry for
// input row index.
func (m *Materializer) Entry(index int64, row Row) (*record.Entry, error) {
	e := record.New(m.s, index)

	for i, f := range m.s.Independent {
		v, err := read(row, f)
		if err != nil {
			return nil, fmt.Errorf("materialize: row %d: %w", index, err)
		}
		e.Scalars[i] = v
	}

	for gi, g := range m.s.Groups {
		rec := e.Groups[gi]
		for fi, f := range g.Fields {
			v, err := read(row, f)
			if err != nil {
				return nil, fmt.Errorf("materialize: row %d: group %s: %w", index, g.Name, err)
			}
			rec[fi] = v
		}
	}

	for ci := range m.s.Collections {
		if err := m.fillCollection(e, ci, row); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (m *Materializer) fillCollection(e *record.Entry, ci int, row Row) error {
	c := m.s.Collections[ci]

	raw, err := row.Value(c.Counter)
	if err != nil {
		return fmt.Errorf("materialize: row %d: counter %s: %w", e.Index, c.Counter, err)
	}
	n, err := record.Int(raw)
	if err != nil {
		return &ConsistencyError{Row: e.Index, Collection: c.Name, Column: c.Counter, Want: -1, Got: -1, Reason: err.Error()}
	}
	if n == 0 {
		e.Collections[ci] = []record.Record{}
		return nil
	}

	values := make([]any, len(c.Fields))
	for fi, f := range c.Fields {
		v, err := row.Value(f.Column)
		if err != nil {
			return fmt.Errorf("materialize: row %d: collection %s: %w", e.Index, c.Name, err)
		}
		got, ok := record.Len(v)
		if !ok {
			got = -1
		}
		if got != n {
			return &ConsistencyError{Row: e.Index, Collection: c.Name, Column: f.Column, Want: n, Got: got}
		}
		values[fi] = v
	}

	// Only attribute lengths bound n; a counter without attributes is not
	// trusted for sizing.
	if len(c.Fields) > 0 {
		e.Collections[ci] = make([]record.Record, 0, n)
	}
	for o := 0; o < n; o++ {
		elem := e.Append(ci, len(c.Fields))
		for fi, f := range c.Fields {
			v, err := record.Convert(record.Index(values[fi], o), f.Type)
			if err != nil {
				return fmt.Errorf("materialize: row %d: %s[%d]: %w", e.Index, f.Column, o, err)
			}
			elem[fi] = v
		}
	}
	return nil
}

func read(row Row, f schema.Field) (any, error) {
	v, err := row.Value(f.Column)
	if err != nil {
		return nil, err
	}
	v, err = record.Convert(v, f.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Column, err)
	}
	return v, nil
}
