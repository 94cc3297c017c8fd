// Package sqlsink writes entries into relational tables through the storage
// backends: one parent table with a row per entry (groups flattened into
// "<Group>_<field>" columns) and one child table per collection with a row
// per element, keyed by (entry, idx).
//
// Tables are dropped and recreated when the writer opens and dropped again
// on Abort.
package sqlsink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"nanoconv/internal/ddl"
	"nanoconv/internal/record"
	"nanoconv/internal/schema"
	"nanoconv/internal/sink"
	"nanoconv/internal/storage"
)

const (
	entryColumn = "entry"
	indexColumn = "idx"
)

func init() {
	sink.Register("sqlite", sink.Kind{Suffix: "_nested.sqlite", Open: opener("sqlite")})
	sink.Register("postgres", sink.Kind{Open: opener("postgres")})
	sink.Register("mssql", sink.Kind{Open: opener("mssql")})
	sink.Register("mysql", sink.Kind{Open: opener("mysql")})
}

func opener(kind string) sink.Opener {
	return func(ctx context.Context, s *schema.Schema, cfg sink.Config) (sink.Writer, error) {
		return New(ctx, kind, s, cfg)
	}
}

// Writer is a sink.Writer over one storage.Repository.
type Writer struct {
	kind    string
	repo    storage.Repository
	dialect storage.Dialect
	ns      *schema.Schema

	tables   []ddl.TableDef // parent first, then one per collection
	batchers []*storage.Batcher
	created  []string

	// file is the SQLite database path when this writer created it.
	file string

	start  time.Time
	closed bool
}

// Tables returns the parent and child table definitions for s.
// Option "lowercase" lower-cases every generated identifier.
func Tables(d storage.Dialect, s *schema.Schema, cfg sink.Config) []ddl.TableDef {
	lower := cfg.Options.Bool("lowercase", false)
	parent := cfg.TableName()

	key := func(n *namer, name string, t schema.Type) ddl.ColumnDef {
		return ddl.ColumnDef{Name: n.name(name), SQLType: d.MapType(t), PrimaryKey: true}
	}
	col := func(n *namer, name string, t schema.Type) ddl.ColumnDef {
		return ddl.ColumnDef{Name: n.name(name), SQLType: d.MapType(t), Nullable: true}
	}

	pn := newNamer(lower)
	p := ddl.TableDef{FQN: parent, Columns: []ddl.ColumnDef{key(pn, entryColumn, schema.Int64)}}
	for _, f := range s.Independent {
		p.Columns = append(p.Columns, col(pn, f.Name, f.Type))
	}
	for _, g := range s.Groups {
		for _, f := range g.Fields {
			p.Columns = append(p.Columns, col(pn, g.Name+"_"+f.Name, f.Type))
		}
	}
	out := []ddl.TableDef{p}

	tn := newNamer(lower)
	for _, c := range s.Collections {
		cn := newNamer(lower)
		t := ddl.TableDef{
			FQN: parent + "_" + tn.name(c.Name),
			Columns: []ddl.ColumnDef{
				key(cn, entryColumn, schema.Int64),
				key(cn, indexColumn, schema.Int32),
			},
		}
		for _, f := range c.Fields {
			t.Columns = append(t.Columns, col(cn, f.Name, f.Type))
		}
		out = append(out, t)
	}
	return out
}

// New connects to cfg.Location with the storage backend kind and recreates
// the output tables.
func New(ctx context.Context, kind string, s *schema.Schema, cfg sink.Config) (*Writer, error) {
	if cfg.Location == "" {
		return nil, fmt.Errorf("sqlsink: %s: DSN must not be empty", kind)
	}
	d, err := storage.DialectFor(kind)
	if err != nil {
		return nil, fmt.Errorf("sqlsink: %w", err)
	}
	w := &Writer{kind: kind, dialect: d, ns: s, start: time.Now()}
	if kind == "sqlite" {
		if _, err := os.Stat(cfg.Location); errors.Is(err, os.ErrNotExist) {
			w.file = cfg.Location
		}
	}

	w.repo, err = storage.New(ctx, storage.Config{Kind: kind, DSN: cfg.Location})
	if err != nil {
		w.Abort()
		return nil, fmt.Errorf("sqlsink: %w", err)
	}

	w.tables = Tables(d, s, cfg)
	for _, t := range w.tables {
		if err := storage.RecreateTable(ctx, w.repo, d, t); err != nil {
			w.Abort()
			return nil, fmt.Errorf("sqlsink: %w", err)
		}
		w.created = append(w.created, t.FQN)

		b, err := storage.NewBatcher(t.FQN, t.Names(), cfg.Batch(), storage.TableCopy(w.repo, t.FQN))
		if err != nil {
			w.Abort()
			return nil, fmt.Errorf("sqlsink: %w", err)
		}
		b.Quiet = cfg.Options.Bool("quiet", true)
		w.batchers = append(w.batchers, b)
	}
	return w, nil
}

// Write implements sink.Writer.
func (w *Writer) Write(ctx context.Context, e *record.Entry) error {
	if w.closed {
		return errors.New("sqlsink: write after close")
	}
	row := make([]any, 0, len(w.tables[0].Columns))
	row = append(row, e.Index)
	for _, v := range e.Scalars {
		row = append(row, Value(v))
	}
	for _, g := range e.Groups {
		for _, v := range g {
			row = append(row, Value(v))
		}
	}
	if err := w.batchers[0].Add(ctx, row); err != nil {
		return fmt.Errorf("sqlsink: entry %d: %w", e.Index, err)
	}

	for c, elems := range e.Collections {
		b := w.batchers[c+1]
		for k, r := range elems {
			crow := make([]any, 0, len(r)+2)
			crow = append(crow, e.Index, int64(k))
			for _, v := range r {
				crow = append(crow, Value(v))
			}
			if err := b.Add(ctx, crow); err != nil {
				return fmt.Errorf("sqlsink: entry %d: %s[%d]: %w", e.Index, w.ns.Collections[c].Name, k, err)
			}
		}
	}
	return nil
}

// Value widens v to what every backend driver accepts: int64 for integers
// (text above MaxInt64), float64 for floats, bool and string unchanged, and
// anything else rendered as text.
func Value(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x
	case float32:
		return float64(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return fmt.Sprint(x)
		}
		return int64(x)
	}
	return fmt.Sprint(v)
}

// Close implements sink.Writer: pending rows are flushed. On a flush error
// the connection stays open so that Abort can still drop the tables.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	ctx := context.Background()
	var rows int64
	for _, b := range w.batchers {
		if err := b.Flush(ctx); err != nil {
			return fmt.Errorf("sqlsink: flush: %w", err)
		}
		rows += b.Total()
	}
	w.closed = true
	w.repo.Close()
	log.Printf("sqlsink: %s: tables=%d rows=%d elapsed=%s", w.kind, len(w.tables), rows,
		time.Since(w.start).Truncate(time.Millisecond))
	return nil
}

// Abort implements sink.Writer: every table this writer created is dropped,
// and a SQLite file it created is removed.
func (w *Writer) Abort() error {
	var err error
	if !w.closed && w.repo != nil {
		err = storage.DropTables(context.Background(), w.repo, w.dialect, w.created...)
		w.repo.Close()
	}
	w.closed = true
	if w.file != "" {
		if rerr := os.Remove(w.file); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
			err = rerr
		}
	}
	if err != nil {
		return fmt.Errorf("sqlsink: abort: %w", err)
	}
	return nil
}
