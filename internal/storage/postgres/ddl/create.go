// Package ddl contains Postgres-specific helpers for generating DDL.
//
// It renders the generic ddl.TableDef with double-quoted identifiers and
// IF [NOT] EXISTS guards.
package ddl

import (
	gddl "nanoconv/internal/ddl"
)

// Dialect implements storage.Dialect for Postgres.
type Dialect struct{}

// CreateTable returns a Postgres CREATE TABLE IF NOT EXISTS statement for def.
func (Dialect) CreateTable(def gddl.TableDef) (string, error) {
	return gddl.BuildCreateTableSQL(def, gddl.DoubleQuote, "IF NOT EXISTS ")
}

// DropTable returns DROP TABLE IF EXISTS for fqn, e.g. "public.Events".
func (Dialect) DropTable(fqn string) string {
	return "DROP TABLE IF EXISTS " + gddl.QuoteFQN(fqn, gddl.DoubleQuote)
}
