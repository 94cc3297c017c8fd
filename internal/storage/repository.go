// Package storage contains storage-agnostic contracts for relational
// backends: the Repository interface, a kind-keyed factory registry, per-kind
// DDL dialects and a synchronous batcher that flushes rows through
// Repository.CopyFrom.
//
// Concrete backends (sqlite, postgres, mssql, mysql) register themselves in init;
// import internal/storage/all to enable every built-in backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownKind is returned by New and DialectFor when no backend has been
// registered for the requested kind.
var ErrUnknownKind = errors.New("storage: unknown kind")

// Repository is the minimal surface a relational backend exposes.
type Repository interface {
	// CopyFrom bulk-inserts rows (aligned to columns) into table using the
	// backend's most efficient primitive and returns the number of rows
	// inserted.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	Close()
}

// Config carries what a backend needs to open a connection.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factMu    sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	factMu.Lock()
	defer factMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	factMu.RLock()
	f, ok := factories[cfg.Kind]
	factMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownKind, cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds in sorted order.
func Kinds() []string {
	factMu.RLock()
	defer factMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
