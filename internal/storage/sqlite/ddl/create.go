// Package ddl provides SQLite-specific DDL for the generic ddl.TableDef model.
//
// The dialect here:
//   - Uses simple double-quoted identifiers: "table", "col".
//   - Emits CREATE TABLE IF NOT EXISTS and DROP TABLE IF EXISTS.
//   - Renders PRIMARY KEY as a separate table constraint.
package ddl

import (
	gddl "nanoconv/internal/ddl"
)

// Dialect implements storage.Dialect for SQLite.
type Dialect struct{}

// CreateTable returns a SQLite CREATE TABLE IF NOT EXISTS statement for def.
// TableDef.FQN segments (e.g. "main.Events") are quoted individually.
func (Dialect) CreateTable(def gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(def, QuoteIdent, "IF NOT EXISTS ")
}

// DropTable returns DROP TABLE IF EXISTS for fqn.
func (Dialect) DropTable(fqn string) string {
	return "DROP TABLE IF EXISTS " + QuoteFQN(fqn) + ";"
}

// QuoteIdent quotes a single identifier segment.
func QuoteIdent(id string) string { return gddl.DoubleQuote(id) }

// QuoteFQN quotes a possibly qualified table name.
func QuoteFQN(fqn string) string { return gddl.QuoteFQN(fqn, QuoteIdent) }
