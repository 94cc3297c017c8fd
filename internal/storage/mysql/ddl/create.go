// Package ddl provides MySQL-specific DDL for the generic ddl.TableDef model.
// Identifiers are backtick-quoted and tables use InnoDB with utf8mb4.
package ddl

import (
	"fmt"
	"strings"

	gddl "nanoconv/internal/ddl"
)

// Dialect implements storage.Dialect for MySQL and MariaDB.
type Dialect struct{}

// CreateTable returns CREATE TABLE IF NOT EXISTS for def.
func (Dialect) CreateTable(def gddl.TableDef) (string, error) {
	stmt, err := gddl.BuildCreateTableSQL(def, QuoteIdent, "IF NOT EXISTS ")
	if err != nil {
		return "", fmt.Errorf("mysql %w", err)
	}
	return strings.TrimSuffix(stmt, ";") + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;", nil
}

// DropTable returns DROP TABLE IF EXISTS for fqn.
func (Dialect) DropTable(fqn string) string {
	return "DROP TABLE IF EXISTS " + QuoteFQN(fqn) + ";"
}

// QuoteIdent quotes one identifier segment with backticks.
//
//	name     -> `name`
//	we`ird   -> `we``ird`
func QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// QuoteFQN quotes a possibly database-qualified table name.
func QuoteFQN(fqn string) string { return gddl.QuoteFQN(fqn, QuoteIdent) }
