package pgsrc

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"nanoconv/internal/datasource"
)

func TestSplitTable(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, sch, tbl string }{
		{"Events", "", "Events"},
		{"public.Events", "public", "Events"},
		{"a.b.c", "a", "b.c"},
	}
	for _, tt := range tests {
		sch, tbl := splitTable(tt.in)
		if sch != tt.sch || tbl != tt.tbl {
			t.Errorf("splitTable(%q) = %q, %q; want %q, %q", tt.in, sch, tbl, tt.sch, tt.tbl)
		}
	}
	s := &Source{table: "public.Events"}
	if got := s.ident(); got != `"public"."Events"` {
		t.Fatalf("ident = %s", got)
	}
}

// TestScan_Integration runs against a live server when NANOCONV_PG_DSN is set.
func TestScan_Integration(t *testing.T) {
	dsn := os.Getenv("NANOCONV_PG_DSN")
	if dsn == "" {
		t.Skip("NANOCONV_PG_DSN not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()
	for _, q := range []string{
		`DROP TABLE IF EXISTS nanoconv_it_flat`,
		`CREATE TABLE nanoconv_it_flat (id int PRIMARY KEY, run int8, "nJet" int4, "Jet_pt" float4[])`,
		`INSERT INTO nanoconv_it_flat VALUES (0, 1, 2, '{40,25}'), (1, 1, 0, '{}')`,
	} {
		if _, err := pool.Exec(ctx, q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	defer pool.Exec(ctx, `DROP TABLE IF EXISTS nanoconv_it_flat`)

	src, err := datasource.Open(ctx, "postgres", datasource.Config{
		Location: dsn,
		Table:    "nanoconv_it_flat",
		Options:  map[string]any{"order_by": "id"},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	cols := src.Columns()
	if len(cols) != 4 || !cols[3].Jagged || cols[3].TypeName != "float4" {
		t.Fatalf("Columns = %+v", cols)
	}
	var pts []any
	err = src.Scan(ctx, 1, func(_ int64, r datasource.Row) error {
		v, err := r.Value("Jet_pt")
		pts, _ = v.([]any)
		return err
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(pts) != 2 || pts[0] != float32(40) {
		t.Fatalf("Jet_pt = %#v", pts)
	}
}
