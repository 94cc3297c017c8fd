package storage

import (
	"context"
	"fmt"
	"sync"

	"nanoconv/internal/ddl"
	"nanoconv/internal/schema"
)

// Dialect renders backend-specific DDL. Backends register one per storage
// kind at init time so callers never branch on the backend themselves.
type Dialect interface {
	// CreateTable returns a statement creating def.
	CreateTable(def ddl.TableDef) (string, error)

	// DropTable returns a statement dropping fqn if it exists.
	DropTable(fqn string) string

	// MapType returns the column type used for values of t.
	MapType(t schema.Type) string
}

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]Dialect{}
)

// RegisterDDL registers (or replaces) the Dialect for the given storage kind.
func RegisterDDL(kind string, d Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = d
}

// DialectFor returns the Dialect registered for kind.
func DialectFor(kind string) (Dialect, error) {
	ddlMu.RLock()
	d, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no DDL dialect registered for %q", ErrUnknownKind, kind)
	}
	return d, nil
}

// RecreateTable drops def.FQN if present and creates it again.
func RecreateTable(ctx context.Context, repo Repository, d Dialect, def ddl.TableDef) error {
	if err := repo.Exec(ctx, d.DropTable(def.FQN)); err != nil {
		return fmt.Errorf("storage: drop %s: %w", def.FQN, err)
	}
	sql, err := d.CreateTable(def)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := repo.Exec(ctx, sql); err != nil {
		return fmt.Errorf("storage: create %s: %w", def.FQN, err)
	}
	return nil
}

// DropTables drops every table in fqns and returns the first error seen.
func DropTables(ctx context.Context, repo Repository, d Dialect, fqns ...string) error {
	var first error
	for _, t := range fqns {
		if err := repo.Exec(ctx, d.DropTable(t)); err != nil && first == nil {
			first = fmt.Errorf("storage: drop %s: %w", t, err)
		}
	}
	return first
}
