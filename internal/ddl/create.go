// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// Identifier quoting is supplied by the caller as a Quoter so that every
// dialect renders the same column list, constraint and error rules. Backend
// packages under internal/storage/<kind>/ddl pick the quoter and wrap the
// statement in whatever existence guard their dialect supports.
package ddl

import (
	"fmt"
	"strings"
)

// Quoter quotes a single identifier segment.
type Quoter func(ident string) string

// Bare leaves identifiers untouched.
func Bare(id string) string { return id }

// DoubleQuote quotes id ANSI-style, escaping embedded double quotes.
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteFQN quotes each dot-separated segment of fqn with q. Empty segments
// are dropped.
func QuoteFQN(fqn string, q Quoter) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, q(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL]
//
//     where NOT NULL is added when Nullable == false or the column is part of
//     the primary key.
//
//   - Primary key columns are rendered as a separate PRIMARY KEY (...) clause
//     in declaration order.
//
// prefix is inserted after CREATE TABLE (e.g. "IF NOT EXISTS ").
func BuildCreateTableSQL(t TableDef, q Quoter, prefix string) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	if q == nil {
		q = Bare
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, 2)
	seen := make(map[string]struct{}, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		if _, dup := seen[name]; dup {
			return "", fmt.Errorf("ddl: duplicate column %s in table %s", name, fqn)
		}
		seen[name] = struct{}{}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(q(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, q(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE %s%s (\n  %s\n);",
		prefix,
		QuoteFQN(fqn, q),
		strings.Join(cols, ",\n  "),
	), nil
}
