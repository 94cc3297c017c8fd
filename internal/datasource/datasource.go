// Package datasource defines the row-source contract the converter reads
// from and a kind-keyed registry of implementations.
//
// A Source exposes the flat column list of one table (named Events by
// default) and scans its rows sequentially. Implementations live in
// subpackages and register themselves in init; import
// nanoconv/internal/datasource/all to enable every built-in kind.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"nanoconv/internal/schema"
)

// DefaultTable is the table read when Config.Table is empty.
const DefaultTable = "Events"

// ErrUnknownKind is returned by Open when no implementation is registered for
// the requested kind.
var ErrUnknownKind = errors.New("datasource: unknown kind")

// Row gives access to the values of the current row. Scalar columns yield a
// single value; jagged columns yield a slice. A Row is only valid inside the
// Scan callback that produced it.
type Row interface {
	Value(column string) (any, error)
}

// ScanFunc is called once per row in order. Returning an error stops the scan
// and Scan returns that error unchanged.
type ScanFunc func(index int64, row Row) error

// Source is a record-oriented reader over one flat table.
type Source interface {
	// Columns returns the table's columns in declaration order.
	Columns() []schema.Column

	// Len returns the number of rows in the table.
	Len(ctx context.Context) (int64, error)

	// Scan calls fn for rows 0..n-1 (all rows when n < 0). Cancellation is
	// checked between rows.
	Scan(ctx context.Context, n int64, fn ScanFunc) error

	Close() error
}

// Config locates a table.
type Config struct {
	// Location is a file path or a DSN, depending on the kind.
	Location string

	// Table defaults to DefaultTable.
	Table string

	// Options carries kind-specific settings (e.g. "order_by" for postgres).
	Options map[string]any
}

// TableName returns c.Table or DefaultTable.
func (c Config) TableName() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// Opener opens a Source.
type Opener func(ctx context.Context, cfg Config) (Source, error)

var (
	mu      sync.RWMutex
	openers = map[string]Opener{}
)

// Register registers (or replaces) the opener for kind.
func Register(kind string, o Opener) {
	mu.Lock()
	defer mu.Unlock()
	openers[kind] = o
}

// Open opens a Source of the given kind.
func Open(ctx context.Context, kind string, cfg Config) (Source, error) {
	mu.RLock()
	o, ok := openers[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownKind, kind, Kinds())
	}
	return o(ctx, cfg)
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(openers))
	for k := range openers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
