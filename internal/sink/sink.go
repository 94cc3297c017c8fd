// Package sink defines the output side of a conversion: a Writer receives one
// materialized entry at a time and either commits everything on Close or
// discards everything on Abort.
//
// Concrete sinks register themselves by kind from their init functions; see
// nanoconv/internal/sink/all.
package sink

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"nanoconv/internal/config"
	"nanoconv/internal/record"
	"nanoconv/internal/schema"
)

// DefaultTable names the output table (or collection) when none is set.
const DefaultTable = "Events"

// DefaultBatchSize is the number of entries buffered before a flush.
const DefaultBatchSize = 1000

// Metadata keys stamped on outputs that can carry them.
const (
	MetaFingerprint = "nanoconv.schema_fingerprint"
	MetaRunID       = "nanoconv.run_id"
	MetaSource      = "nanoconv.source"
)

// ErrUnknownKind is returned by Open for a kind nothing registered.
var ErrUnknownKind = errors.New("sink: unknown kind")

// Writer consumes entries in input order.
type Writer interface {
	// Write buffers or writes one entry.
	Write(ctx context.Context, e *record.Entry) error

	// Close flushes buffered entries and finalizes the output.
	Close() error

	// Abort releases resources and removes whatever the writer created.
	Abort() error
}

// Config is what every sink is opened with.
type Config struct {
	// Location is the output file path for file sinks or the DSN/URI for
	// database sinks.
	Location string

	Table     string
	BatchSize int
	RunID     string

	// Source is the input location, recorded in output metadata.
	Source string

	// Options carries kind-specific settings (compression, database, ...).
	Options config.Options
}

// TableName returns Table or DefaultTable.
func (c Config) TableName() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

// Batch returns BatchSize or DefaultBatchSize.
func (c Config) Batch() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// Metadata returns the provenance key/value pairs for s, in a fixed order.
// Empty values are left out.
func (c Config) Metadata(s *schema.Schema) (keys, values []string) {
	add := func(k, v string) {
		if v != "" {
			keys = append(keys, k)
			values = append(values, v)
		}
	}
	add(MetaFingerprint, s.FingerprintHex())
	add(MetaRunID, c.RunID)
	add(MetaSource, c.Source)
	return keys, values
}

// Opener opens a writer for entries shaped by s.
type Opener func(ctx context.Context, s *schema.Schema, cfg Config) (Writer, error)

// Kind describes a registered sink.
type Kind struct {
	Open Opener

	// Suffix replaces the input extension to name the output file. Empty
	// for database sinks, which write to Config.Location directly.
	Suffix string
}

// FileBacked reports whether the sink writes a local file.
func (k Kind) FileBacked() bool { return k.Suffix != "" }

var (
	mu    sync.RWMutex
	kinds = map[string]Kind{}
)

// Register makes a sink available under name. It panics on a duplicate or
// incomplete registration.
func Register(name string, k Kind) {
	mu.Lock()
	defer mu.Unlock()
	if k.Open == nil {
		panic("sink: Register with nil Open for " + name)
	}
	if _, dup := kinds[name]; dup {
		panic("sink: Register called twice for " + name)
	}
	kinds[name] = k
}

// Lookup returns the registration for name.
func Lookup(name string) (Kind, error) {
	mu.RLock()
	defer mu.RUnlock()
	k, ok := kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w %q (registered: %s)", ErrUnknownKind, name, strings.Join(namesLocked(), ", "))
	}
	return k, nil
}

// Open opens a writer of the given kind.
func Open(ctx context.Context, name string, s *schema.Schema, cfg Config) (Writer, error) {
	k, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return k.Open(ctx, s, cfg)
}

// Kinds lists the registered kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	out := make([]string, 0, len(kinds))
	for name := range kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// OutputPath derives the output file for input by replacing its extension
// with suffix: "dir/nano.root" becomes "dir/nano_nested.parquet".
func OutputPath(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}
