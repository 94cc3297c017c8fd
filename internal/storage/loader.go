package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the provided rows (aligned to 'columns' order) and return the number of rows
// reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// TableCopy binds Repository.CopyFrom to one table.
func TableCopy(repo Repository, table string) CopyFn {
	return func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return repo.CopyFrom(ctx, table, columns, rows)
	}
}

// Batcher groups rows into batches of a fixed size and hands each full batch
// to a CopyFn. Rows are added synchronously by the caller; Flush drains the
// remainder.
//
// Logging: on every successful flush a progress line is emitted with running
// totals and rows/sec since the previous flush.
type Batcher struct {
	name    string
	columns []string
	size    int
	copyFn  CopyFn

	batch       [][]any
	total       int64
	batches     int64
	start       time.Time
	lastFlushTS time.Time
	lastTotal   int64

	// Quiet suppresses the per-batch progress line.
	Quiet bool
}

// NewBatcher returns a Batcher for the table called name.
func NewBatcher(name string, columns []string, batchSize int, copyFn CopyFn) (*Batcher, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("storage: batchSize must be > 0")
	}
	if copyFn == nil {
		return nil, fmt.Errorf("storage: copyFn must not be nil")
	}
	now := time.Now()
	return &Batcher{
		name:        name,
		columns:     columns,
		size:        batchSize,
		copyFn:      copyFn,
		batch:       make([][]any, 0, batchSize),
		start:       now,
		lastFlushTS: now,
	}, nil
}

// Add appends row and flushes when the batch is full.
func (b *Batcher) Add(ctx context.Context, row []any) error {
	if len(row) != len(b.columns) {
		return fmt.Errorf("storage: %s: row length %d != columns length %d", b.name, len(row), len(b.columns))
	}
	b.batch = append(b.batch, row)
	if len(b.batch) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush copies any pending rows.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.batch) == 0 {
		return nil
	}
	n, err := b.copyFn(ctx, b.columns, b.batch)
	b.total += n

	// Rows may be retained by the backend until copyFn returns; start a new
	// slice rather than reusing the backing array.
	b.batch = make([][]any, 0, b.size)

	if err != nil {
		log.Printf("loader: %s: COPY failed after=%d total=%d err=%v", b.name, n, b.total, err)
		return err
	}

	b.batches++
	now := time.Now()
	sinceLast := now.Sub(b.lastFlushTS)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(b.total-b.lastTotal) / sinceLast.Seconds()
	}
	if !b.Quiet {
		log.Printf(
			"batch #%d %s: rps=%.0f inserted=%d total_inserted=%d elapsed=%s since_last=%s",
			b.batches,
			b.name,
			rps,
			n,
			b.total,
			now.Sub(b.start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
	}
	b.lastFlushTS = now
	b.lastTotal = b.total
	return nil
}

// Total returns the number of rows reported inserted so far.
func (b *Batcher) Total() int64 { return b.total }

// Batches returns the number of successful flushes.
func (b *Batcher) Batches() int64 { return b.batches }

// Pending returns the number of buffered rows.
func (b *Batcher) Pending() int { return len(b.batch) }
