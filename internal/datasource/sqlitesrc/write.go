package sqlitesrc

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"nanoconv/internal/record"
	"nanoconv/internal/schema"
)

// WriteFlat creates table in the database at dsn with the given columns and
// inserts rows (one value per column, slices for jagged columns). Jagged
// columns are declared as "<type> ARRAY" and stored as JSON text, the layout
// Open reads back. An existing table of the same name is replaced.
func WriteFlat(ctx context.Context, dsn, table string, cols []schema.Column, rows [][]any) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("sqlitesrc: open: %w", err)
	}
	defer db.Close()

	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		typ := c.TypeName
		if c.Jagged {
			typ += " ARRAY"
		}
		defs[i] = quoteIdent(c.Name) + " " + typ
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitesrc: begin: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		"DROP TABLE IF EXISTS " + quoteIdent(table),
		fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", ")),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("sqlitesrc: %s: %w", s, err)
		}
	}

	ins, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("sqlitesrc: prepare: %w", err)
	}
	defer ins.Close()

	args := make([]any, len(cols))
	for ri, r := range rows {
		if len(r) != len(cols) {
			return fmt.Errorf("sqlitesrc: row %d has %d values, want %d", ri, len(r), len(cols))
		}
		for i, v := range r {
			if !cols[i].Jagged || v == nil {
				args[i] = v
				continue
			}
			if _, ok := record.Len(v); !ok {
				return fmt.Errorf("sqlitesrc: row %d: column %s: %T is not a list", ri, cols[i].Name, v)
			}
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("sqlitesrc: row %d: column %s: %w", ri, cols[i].Name, err)
			}
			args[i] = string(b)
		}
		if _, err := ins.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlitesrc: insert row %d: %w", ri, err)
		}
	}
	return tx.Commit()
}
