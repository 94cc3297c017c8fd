// Package ddl provides MSSQL-specific DDL for the generic ddl.TableDef model.
//
// The dialect here:
//   - Uses SQL Server-style identifier quoting: [schema].[table], [col].
//   - Wraps CREATE and DROP in IF OBJECT_ID(...) guards since older T-SQL
//     does not support IF [NOT] EXISTS on tables.
package ddl

import (
	"fmt"
	"strings"

	gddl "nanoconv/internal/ddl"
)

// Dialect implements storage.Dialect for SQL Server.
type Dialect struct{}

// CreateTable returns a T-SQL script that creates def if it does not already
// exist:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema].[table] (
//	    [col1] TYPE [NOT NULL],
//	    PRIMARY KEY ([pk1], [pk2])
//	  );
//	END;
func (Dialect) CreateTable(def gddl.TableDef) (string, error) {
	stmt, err := gddl.BuildCreateTableSQL(def, quoteIdent, "")
	if err != nil {
		return "", fmt.Errorf("mssql %w", err)
	}
	fqn := quoteFQN(strings.TrimSpace(def.FQN))
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  %s\nEND;",
		fqn,
		strings.ReplaceAll(stmt, "\n", "\n  "),
	), nil
}

// DropTable returns a guarded DROP TABLE for fqn.
func (Dialect) DropTable(fqn string) string {
	q := quoteFQN(fqn)
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;", q, q)
}

// quoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// quoteFQN quotes a possibly schema-qualified table name, e.g.:
//
//	"dbo.Events" -> [dbo].[Events]
//	"Events"     -> [Events]
func quoteFQN(fqn string) string { return gddl.QuoteFQN(fqn, quoteIdent) }
