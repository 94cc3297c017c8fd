package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultCounterPrefix is the marker that starts every counter column name.
const DefaultCounterPrefix = "n"

// FieldNaming selects how jagged attribute field names are derived.
type FieldNaming string

const (
	// Trimmed strips "X_" from "X_field", the same rule used for groups.
	Trimmed FieldNaming = "trimmed"

	// Literal strips as many characters as the counter column name has.
	// With a one-character prefix this equals Trimmed ("nJet" and "Jet_" are
	// both four bytes long); longer prefixes eat into the field name.
	Literal FieldNaming = "literal"
)

// Options tunes classification. The zero value is valid.
type Options struct {
	// CounterPrefix defaults to DefaultCounterPrefix.
	CounterPrefix string

	// FieldNames defaults to Trimmed.
	FieldNames FieldNaming

	// Strict runs a validation pass over the classification and returns an
	// *AmbiguityError instead of silently picking a first match.
	Strict bool
}

func (o Options) withDefaults() Options {
	if o.CounterPrefix == "" {
		o.CounterPrefix = DefaultCounterPrefix
	}
	if o.FieldNames == "" {
		o.FieldNames = Trimmed
	}
	return o
}

// AmbiguityError lists every naming problem found by a strict classification.
type AmbiguityError struct {
	Problems []string
}

func (e *AmbiguityError) Error() string {
	if len(e.Problems) == 1 {
		return "schema: ambiguous column naming: " + e.Problems[0]
	}
	return fmt.Sprintf("schema: ambiguous column naming (%d problems): %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

// Classify partitions columns into independent columns, groups and jagged
// collections.
//
// Counters are columns named prefix+X (longer than the prefix). A column
// named "X_..." belongs to the first collection X, in counter first-seen
// order. Of the rest, a column "G_..." belongs to group G, with groups in
// first-seen order. Everything left over is independent, in input order.
//
// Without Options.Strict Classify never fails on naming; it returns an error
// only for an unknown FieldNames mode.
func Classify(columns []Column, opts Options) (*Schema, error) {
	opts = opts.withDefaults()
	if opts.FieldNames != Trimmed && opts.FieldNames != Literal {
		return nil, fmt.Errorf("schema: unknown field naming %q", opts.FieldNames)
	}

	var (
		n          = len(columns)
		assigned   = make([]Assignment, n)
		isCounter  = make([]bool, n)
		entities   []string
		counterOf  = map[string]int{} // entity -> index of its counter column
		problems   []string
		prefix     = opts.CounterPrefix
		collByName = map[string]int{}
	)

	// Counters.
	for i, c := range columns {
		assigned[i] = Assignment{Column: c.Name, Role: Independent}
		if !strings.HasPrefix(c.Name, prefix) || len(c.Name) <= len(prefix) {
			continue
		}
		isCounter[i] = true
		entity := c.Name[len(prefix):]
		assigned[i] = Assignment{Column: c.Name, Role: Counter, Owner: entity}
		if _, seen := counterOf[entity]; !seen {
			counterOf[entity] = i
			entities = append(entities, entity)
		}
	}

	s := &Schema{}
	for _, e := range entities {
		cc := columns[counterOf[e]]
		collByName[e] = len(s.Collections)
		s.Collections = append(s.Collections, Collection{
			Name:        e,
			Counter:     cc.Name,
			CounterType: ParseType(cc.TypeName),
		})
	}

	// Jagged attributes: first entity match wins.
	for i, c := range columns {
		if isCounter[i] {
			continue
		}
		for _, e := range entities {
			if !strings.HasPrefix(c.Name, e+"_") {
				continue
			}
			if assigned[i].Role == Attribute {
				problems = append(problems, fmt.Sprintf(
					"column %q matches collections %q and %q", c.Name, assigned[i].Owner, e))
				continue
			}
			assigned[i] = Assignment{Column: c.Name, Role: Attribute, Owner: e}
			if !opts.Strict {
				break
			}
		}
		if assigned[i].Role != Attribute {
			continue
		}
		e := assigned[i].Owner
		name := c.Name[len(e)+1:]
		if opts.FieldNames == Literal {
			name = ""
			if cut := len(columns[counterOf[e]].Name); cut < len(c.Name) {
				name = c.Name[cut:]
			}
		}
		coll := &s.Collections[collByName[e]]
		coll.Fields = append(coll.Fields, fieldOf(name, c))
	}

	// Group names in first-seen order.
	var groups []string
	groupIdx := map[string]int{}
	for i, c := range columns {
		if isCounter[i] || assigned[i].Role == Attribute {
			continue
		}
		g, _, ok := strings.Cut(c.Name, "_")
		if !ok || g == "" {
			continue
		}
		if _, isEntity := counterOf[g]; isEntity {
			continue
		}
		if _, seen := groupIdx[g]; !seen {
			groupIdx[g] = len(groups)
			groups = append(groups, g)
			s.Groups = append(s.Groups, Group{Name: g})
		}
	}

	// Group members: first group match wins.
	for i, c := range columns {
		if isCounter[i] || assigned[i].Role == Attribute {
			continue
		}
		for gi, g := range groups {
			if !strings.HasPrefix(c.Name, g+"_") {
				continue
			}
			assigned[i] = Assignment{Column: c.Name, Role: GroupMember, Owner: g}
			s.Groups[gi].Fields = append(s.Groups[gi].Fields, fieldOf(c.Name[len(g)+1:], c))
			break
		}
	}

	for i, c := range columns {
		if assigned[i].Role == Independent {
			s.Independent = append(s.Independent, fieldOf(c.Name, c))
		}
	}
	s.Assignments = assigned

	if opts.Strict {
		problems = append(problems, validate(s, columns)...)
		if len(problems) > 0 {
			return nil, &AmbiguityError{Problems: problems}
		}
	}
	return s, nil
}

func fieldOf(name string, c Column) Field {
	return Field{
		Name:     name,
		Column:   c.Name,
		TypeName: c.TypeName,
		Type:     ParseType(c.TypeName),
	}
}

// validate collects the strict-mode problems that are not multi-owner
// matches (those are found while assigning attributes).
func validate(s *Schema, columns []Column) []string {
	var problems []string

	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c.Name] {
			problems = append(problems, fmt.Sprintf("duplicate column %q", c.Name))
		}
		seen[c.Name] = true
	}

	owner := make(map[string]Assignment, len(s.Assignments))
	for _, a := range s.Assignments {
		owner[a.Column] = a
	}

	for _, coll := range s.Collections {
		if coll.CounterType != Unknown && !coll.CounterType.IsInteger() {
			problems = append(problems, fmt.Sprintf(
				"counter %q has non-integer type %s", coll.Counter, coll.CounterType))
		}
		for _, f := range coll.Fields {
			if strings.Trim(f.Name, "_") == "" {
				problems = append(problems, fmt.Sprintf("column %q yields an empty field name", f.Column))
			}
		}
	}
	for _, g := range s.Groups {
		for _, f := range g.Fields {
			if f.Name == "" {
				problems = append(problems, fmt.Sprintf("column %q yields an empty field name", f.Column))
			}
		}
	}

	// Independent columns, groups and collections share one top-level
	// namespace in every output layout.
	top := make(map[string]string, len(s.Independent)+len(s.Groups)+len(s.Collections))
	claim := func(name, what string) {
		if prev, ok := top[name]; ok {
			problems = append(problems, fmt.Sprintf("output name %q is used by %s and %s", name, prev, what))
			return
		}
		top[name] = what
	}
	for _, c := range s.Collections {
		claim(c.Name, "collection "+strconv.Quote(c.Name))
	}
	for _, g := range s.Groups {
		claim(g.Name, "group "+strconv.Quote(g.Name))
	}
	for _, f := range s.Independent {
		if strings.HasPrefix(top[f.Name], "independent") {
			continue // already a duplicate column
		}
		claim(f.Name, "independent column "+strconv.Quote(f.Column))
	}

	for _, c := range columns {
		a := owner[c.Name]
		switch {
		case c.CountedBy != "" && a.Role != Attribute:
			problems = append(problems, fmt.Sprintf(
				"column %q is counted by %q but is not an attribute of any collection", c.Name, c.CountedBy))
		case c.CountedBy != "" && a.Role == Attribute:
			want := s.Collections[collectionIndex(s, a.Owner)].Counter
			if c.CountedBy != want {
				problems = append(problems, fmt.Sprintf(
					"column %q is counted by %q, not by %q", c.Name, c.CountedBy, want))
			}
		case c.Jagged && a.Role != Attribute:
			problems = append(problems, fmt.Sprintf(
				"jagged column %q does not belong to any collection", c.Name))
		}
	}
	return problems
}

func collectionIndex(s *Schema, name string) int {
	for i, c := range s.Collections {
		if c.Name == name {
			return i
		}
	}
	return -1
}
