// Package schema infers a nested record layout from the flat column names of
// an event table.
//
// Columns follow the NanoAOD naming convention:
//
//   - "nJet" is a counter column: each row holds the number of Jet elements.
//   - "Jet_pt", "Jet_eta" are attributes of the jagged collection Jet.
//   - "Muon_px", "Muon_py" (with no "nMuon") are members of the fixed-shape
//     group Muon.
//   - anything else ("run", "event") is an independent scalar column.
//
// Classify produces an immutable Schema that the materializer and the sinks
// consume; nothing is re-derived per row.
package schema

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Column is a named, typed column as reported by a row source.
type Column struct {
	Name string

	// TypeName is the opaque primitive type token reported by the source
	// (e.g. "Float_t", "float32", "REAL").
	TypeName string

	// Jagged is set when the source reports a variable-length column.
	Jagged bool

	// CountedBy names the counter column the source says sizes this column.
	// Empty when the source does not know.
	CountedBy string
}

// Role is the classification tag of a column.
type Role int

const (
	Independent Role = iota
	GroupMember
	Attribute
	Counter
)

func (r Role) String() string {
	switch r {
	case Independent:
		return "independent"
	case GroupMember:
		return "group"
	case Attribute:
		return "attribute"
	case Counter:
		return "counter"
	}
	return "role(" + strconv.Itoa(int(r)) + ")"
}

// Assignment records how one input column was classified. Owner is the group
// or collection name for GroupMember and Attribute columns, the collection
// name for Counter columns, and empty for Independent columns.
type Assignment struct {
	Column string
	Role   Role
	Owner  string
}

// Field is one output field and the source column it is read from.
type Field struct {
	Name     string
	Column   string
	TypeName string
	Type     Type
}

// Group is a fixed-shape record with exactly one instance per row.
type Group struct {
	Name   string
	Fields []Field
}

// Collection is a variable-length list of records per row, sized by Counter.
type Collection struct {
	Name        string
	Counter     string
	CounterType Type
	Fields      []Field
}

// Schema is the full partition of the input columns.
type Schema struct {
	Independent []Field
	Groups      []Group
	Collections []Collection

	// Assignments holds one entry per input column, in input order.
	Assignments []Assignment
}

// NumColumns returns the number of classified input columns.
func (s *Schema) NumColumns() int { return len(s.Assignments) }

// Describe writes a human-readable dump of the classification.
func (s *Schema) Describe(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Collections:\n")
	for _, c := range s.Collections {
		fmt.Fprintf(&b, "  %s: (counter %s)\n", c.Name, c.Counter)
		for _, f := range c.Fields {
			fmt.Fprintf(&b, "    %s %s\n", f.Name, f.TypeName)
		}
	}
	b.WriteString("Record fields:\n")
	for _, g := range s.Groups {
		fmt.Fprintf(&b, "  %s:\n", g.Name)
		for _, f := range g.Fields {
			fmt.Fprintf(&b, "    %s %s\n", f.Name, f.TypeName)
		}
	}
	b.WriteString("Independent fields:\n")
	for _, f := range s.Independent {
		fmt.Fprintf(&b, "    %s %s\n", f.Name, f.TypeName)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Fingerprint returns a stable hash of the output layout: field names, type
// tags and nesting. Two schemas with the same fingerprint produce outputs
// with identical structure.
func (s *Schema) Fingerprint() uint64 {
	var b strings.Builder
	for _, f := range s.Independent {
		fmt.Fprintf(&b, "i:%s:%s;", f.Name, f.Type)
	}
	for _, g := range s.Groups {
		fmt.Fprintf(&b, "g:%s{", g.Name)
		for _, f := range g.Fields {
			fmt.Fprintf(&b, "%s:%s;", f.Name, f.Type)
		}
		b.WriteString("}")
	}
	for _, c := range s.Collections {
		fmt.Fprintf(&b, "c:%s[", c.Name)
		for _, f := range c.Fields {
			fmt.Fprintf(&b, "%s:%s;", f.Name, f.Type)
		}
		b.WriteString("]")
	}
	return xxh3.HashString(b.String())
}

// FingerprintHex is Fingerprint formatted as 16 hex digits.
func (s *Schema) FingerprintHex() string {
	return fmt.Sprintf("%016x", s.Fingerprint())
}
