// Package pgsrc reads a flat event table from Postgres. Jagged columns are
// native array columns (udt names starting with "_", e.g. "_float4").
package pgsrc

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nanoconv/internal/datasource"
	"nanoconv/internal/schema"
)

func init() {
	datasource.Register("postgres", func(ctx context.Context, cfg datasource.Config) (datasource.Source, error) {
		orderBy, _ := cfg.Options["order_by"].(string)
		return Open(ctx, cfg.Location, cfg.TableName(), orderBy)
	})
}

// Source is a datasource.Source over one Postgres table.
type Source struct {
	pool    *pgxpool.Pool
	table   string
	orderBy string
	columns []schema.Column
}

// Open connects to dsn and reads the column list of table ("schema.table"
// or a bare name resolved against current_schema()). orderBy names the
// column rows are scanned by; empty means physical order.
func Open(ctx context.Context, dsn, table, orderBy string) (*Source, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgsrc: pgxpool: %w", err)
	}
	s := &Source{pool: pool, table: table, orderBy: orderBy}
	if s.columns, err = s.readColumns(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

const columnsSQL = `
SELECT column_name, udt_name
FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
  AND table_name = $2
ORDER BY ordinal_position`

func (s *Source) readColumns(ctx context.Context) ([]schema.Column, error) {
	sch, tbl := splitTable(s.table)
	rows, err := s.pool.Query(ctx, columnsSQL, sch, tbl)
	if err != nil {
		return nil, fmt.Errorf("pgsrc: columns of %s: %w", s.table, err)
	}
	var cols []schema.Column
	for rows.Next() {
		var name, udt string
		if err := rows.Scan(&name, &udt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("pgsrc: columns of %s: %w", s.table, err)
		}
		c := schema.Column{Name: name, TypeName: udt}
		if base, ok := strings.CutPrefix(udt, "_"); ok {
			c.TypeName = base
			c.Jagged = true
		}
		cols = append(cols, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgsrc: columns of %s: %w", s.table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("pgsrc: table %q not found or has no columns", s.table)
	}
	return cols, nil
}

// Columns implements datasource.Source.
func (s *Source) Columns() []schema.Column { return s.columns }

// Len implements datasource.Source.
func (s *Source) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+s.ident()).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgsrc: count %s: %w", s.table, err)
	}
	return n, nil
}

// Scan implements datasource.Source.
func (s *Source) Scan(ctx context.Context, n int64, fn datasource.ScanFunc) error {
	if n == 0 {
		return nil
	}
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = pgx.Identifier{c.Name}.Sanitize()
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), s.ident())
	if s.orderBy != "" {
		q += " ORDER BY " + pgx.Identifier{s.orderBy}.Sanitize()
	}
	var args []any
	if n > 0 {
		q += " LIMIT $1"
		args = append(args, n)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("pgsrc: select %s: %w", s.table, err)
	}
	defer rows.Close()

	r := &row{index: make(map[string]int, len(s.columns))}
	for i, c := range s.columns {
		r.index[c.Name] = i
	}
	for index := int64(0); rows.Next(); index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.vals, err = rows.Values(); err != nil {
			return fmt.Errorf("pgsrc: row %d: %w", index, err)
		}
		if err := fn(index, r); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("pgsrc: select %s: %w", s.table, err)
	}
	return nil
}

// Close implements datasource.Source.
func (s *Source) Close() error {
	s.pool.Close()
	return nil
}

func (s *Source) ident() string {
	sch, tbl := splitTable(s.table)
	if sch == "" {
		return pgx.Identifier{tbl}.Sanitize()
	}
	return pgx.Identifier{sch, tbl}.Sanitize()
}

// splitTable splits "schema.table" at the first dot.
func splitTable(fqn string) (sch, tbl string) {
	if before, after, ok := strings.Cut(fqn, "."); ok {
		return before, after
	}
	return "", fqn
}

type row struct {
	index map[string]int
	vals  []any
}

// Value implements datasource.Row. Array columns arrive as []any from pgx.
func (r *row) Value(col string) (any, error) {
	i, ok := r.index[col]
	if !ok {
		return nil, fmt.Errorf("pgsrc: no column %q", col)
	}
	return r.vals[i], nil
}
