// Package record holds the data-driven output row built for each input row.
//
// An Entry stores values positionally, aligned with the schema it was built
// from: Scalars[i] belongs to Schema.Independent[i], Groups[g][f] to
// Schema.Groups[g].Fields[f], and Collections[c][k][f] to field f of the k-th
// element of Schema.Collections[c].
package record

import "nanoconv/internal/schema"

// Record is one nested record: one value per field of its group or
// collection, in field order.
type Record []any

// Entry is one materialized output row.
type Entry struct {
	// Index is the zero-based input row number.
	Index int64

	Scalars     []any
	Groups      []Record
	Collections [][]Record
}

// New returns an empty entry shaped for s. Group records are allocated;
// collections start empty.
func New(s *schema.Schema, index int64) *Entry {
	e := &Entry{
		Index:       index,
		Scalars:     make([]any, len(s.Independent)),
		Groups:      make([]Record, len(s.Groups)),
		Collections: make([][]Record, len(s.Collections)),
	}
	for i, g := range s.Groups {
		e.Groups[i] = make(Record, len(g.Fields))
	}
	return e
}

// Append adds a new zero-valued element to collection c and returns it.
func (e *Entry) Append(c, nfields int) Record {
	r := make(Record, nfields)
	e.Collections[c] = append(e.Collections[c], r)
	return r
}
