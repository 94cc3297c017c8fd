package storage

import (
	"context"
	"errors"
	"testing"
)

func newQuietBatcher(tb testing.TB, columns []string, size int, fn CopyFn) *Batcher {
	tb.Helper()
	b, err := NewBatcher("t", columns, size, fn)
	if err != nil {
		tb.Fatalf("NewBatcher: %v", err)
	}
	b.Quiet = true
	return b
}

// TestBatcher_Basic verifies rows are grouped into batches and copyFn is
// called with the expected counts. It also checks the total equals the sum of
// all successful copyFn returns.
func TestBatcher_Basic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var sizes []int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		sizes = append(sizes, len(rows))
		return int64(len(rows)), nil
	}

	b := newQuietBatcher(t, []string{"c1", "c2"}, 3, copyFn)
	for i := 0; i < 7; i++ {
		if err := b.Add(ctx, []any{i, "x"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if b.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", b.Pending())
	}
	if err := b.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if b.Total() != 7 {
		t.Fatalf("total rows %d, want 7", b.Total())
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes %v, want [3 3 1]", sizes)
	}
	if b.Batches() != 3 {
		t.Fatalf("Batches = %d, want 3", b.Batches())
	}
}

// TestBatcher_ErrorPropagation ensures a copy error is returned from the Add
// that triggered the flush.
func TestBatcher_ErrorPropagation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wantErr := errors.New("copy failed")
	var calls int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		calls++
		if calls == 2 {
			return 0, wantErr
		}
		return int64(len(rows)), nil
	}

	b := newQuietBatcher(t, []string{"c"}, 2, copyFn)
	var err error
	for i := 0; i < 5 && err == nil; i++ {
		err = b.Add(ctx, []any{i})
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if b.Total() != 2 {
		t.Fatalf("total rows %d, want 2", b.Total())
	}
}

func TestBatcher_RowLengthAndArgs(t *testing.T) {
	t.Parallel()

	if _, err := NewBatcher("t", []string{"c"}, 0, func(context.Context, []string, [][]any) (int64, error) { return 0, nil }); err == nil {
		t.Fatal("batch size 0: want error")
	}
	if _, err := NewBatcher("t", []string{"c"}, 1, nil); err == nil {
		t.Fatal("nil copyFn: want error")
	}

	b := newQuietBatcher(t, []string{"a", "b"}, 10, func(context.Context, []string, [][]any) (int64, error) { return 0, nil })
	if err := b.Add(context.Background(), []any{1}); err == nil {
		t.Fatal("short row: want error")
	}
}

// TestBatcher_FlushDoesNotReuseRows guards against a flushed batch being
// overwritten by later rows.
func TestBatcher_FlushDoesNotReuseRows(t *testing.T) {
	t.Parallel()

	var kept [][][]any
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		kept = append(kept, rows)
		return int64(len(rows)), nil
	}
	b := newQuietBatcher(t, []string{"c"}, 1, copyFn)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := b.Add(ctx, []any{i}); err != nil {
			t.Fatal(err)
		}
	}
	for i, rows := range kept {
		if rows[0][0] != i {
			t.Fatalf("batch %d holds %v", i, rows[0][0])
		}
	}
}
