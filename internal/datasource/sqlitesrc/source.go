// Package sqlitesrc reads a flat event table from a SQLite database.
//
// Scalar columns are stored natively. Jagged columns are stored as JSON array
// text and declared with an ARRAY suffix on their type (e.g. "Float_t ARRAY");
// SQLite keeps multi-word type names verbatim.
package sqlitesrc

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"nanoconv/internal/datasource"
	"nanoconv/internal/schema"
	sqliteddl "nanoconv/internal/storage/sqlite/ddl"

	_ "modernc.org/sqlite"
)

func init() {
	datasource.Register("sqlite", func(ctx context.Context, cfg datasource.Config) (datasource.Source, error) {
		return Open(ctx, cfg.Location, cfg.TableName())
	})
}

// Source is a datasource.Source over one SQLite table.
type Source struct {
	db      *sql.DB
	table   string
	columns []schema.Column
}

// Open opens the database at dsn and reads the column list of table.
func Open(ctx context.Context, dsn, table string) (*Source, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlitesrc: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitesrc: open: %w", err)
	}
	s := &Source{db: db, table: table}
	if s.columns, err = s.readColumns(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) readColumns(ctx context.Context) ([]schema.Column, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", s.table)
	if err != nil {
		return nil, fmt.Errorf("sqlitesrc: table info %s: %w", s.table, err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("sqlitesrc: table info %s: %w", s.table, err)
		}
		cols = append(cols, parseDecl(name, typ))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitesrc: table info %s: %w", s.table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("sqlitesrc: table %q not found or has no columns", s.table)
	}
	return cols, nil
}

// parseDecl splits a declared type into the element type and the jagged
// marker ("T ARRAY" or "T[]").
func parseDecl(name, decl string) schema.Column {
	c := schema.Column{Name: name, TypeName: strings.TrimSpace(decl)}
	up := strings.ToUpper(c.TypeName)
	switch {
	case strings.HasSuffix(up, " ARRAY"):
		c.TypeName = strings.TrimSpace(c.TypeName[:len(c.TypeName)-len(" ARRAY")])
		c.Jagged = true
	case strings.HasSuffix(up, "[]"):
		c.TypeName = strings.TrimSpace(c.TypeName[:len(c.TypeName)-2])
		c.Jagged = true
	}
	return c
}

// Columns implements datasource.Source.
func (s *Source) Columns() []schema.Column { return s.columns }

// Len implements datasource.Source.
func (s *Source) Len(ctx context.Context) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + quoteIdent(s.table)
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlitesrc: count %s: %w", s.table, err)
	}
	return n, nil
}

// Scan implements datasource.Source. Rows are read in rowid order.
func (s *Source) Scan(ctx context.Context, n int64, fn datasource.ScanFunc) error {
	if n == 0 {
		return nil
	}
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = quoteIdent(c.Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(names, ", "), quoteIdent(s.table))
	var args []any
	if n > 0 {
		q += " LIMIT ?"
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("sqlitesrc: select %s: %w", s.table, err)
	}
	defer rows.Close()

	r := newRow(s.columns)
	for index := int64(0); rows.Next(); index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rows.Scan(r.dest...); err != nil {
			return fmt.Errorf("sqlitesrc: row %d: %w", index, err)
		}
		r.reset()
		if err := fn(index, r); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlitesrc: select %s: %w", s.table, err)
	}
	return nil
}

// Close implements datasource.Source.
func (s *Source) Close() error { return s.db.Close() }

// row holds the scanned values of the current row.
type row struct {
	index   map[string]int
	columns []schema.Column
	vals    []any
	dest    []any
	decoded []any
	done    []bool
}

func newRow(cols []schema.Column) *row {
	r := &row{
		index:   make(map[string]int, len(cols)),
		columns: cols,
		vals:    make([]any, len(cols)),
		dest:    make([]any, len(cols)),
		decoded: make([]any, len(cols)),
		done:    make([]bool, len(cols)),
	}
	for i, c := range cols {
		r.index[c.Name] = i
		r.dest[i] = &r.vals[i]
	}
	return r
}

func (r *row) reset() {
	for i := range r.done {
		r.done[i] = false
		r.decoded[i] = nil
	}
}

// Value implements datasource.Row. Jagged columns are decoded from JSON on
// first access; numbers keep their literal text as json.Number.
func (r *row) Value(col string) (any, error) {
	i, ok := r.index[col]
	if !ok {
		return nil, fmt.Errorf("sqlitesrc: no column %q", col)
	}
	v := r.vals[i]
	if !r.columns[i].Jagged || v == nil {
		return v, nil
	}
	if r.done[i] {
		return r.decoded[i], nil
	}
	var text string
	switch x := v.(type) {
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		return nil, fmt.Errorf("sqlitesrc: column %q: jagged value has type %T", col, v)
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var list []any
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("sqlitesrc: column %q: %w", col, err)
	}
	if list == nil {
		list = []any{}
	}
	r.decoded[i], r.done[i] = list, true
	return list, nil
}

func quoteIdent(id string) string { return sqliteddl.QuoteIdent(id) }
