package ddl

import (
	"testing"

	gddl "nanoconv/internal/ddl"
	"nanoconv/internal/schema"
)

func TestDialect(t *testing.T) {
	t.Parallel()

	var d Dialect
	sql, err := d.CreateTable(gddl.TableDef{FQN: "public.Events", Columns: []gddl.ColumnDef{
		{Name: "entry", SQLType: d.MapType(schema.Int64), PrimaryKey: true},
		{Name: "MET_pt", SQLType: d.MapType(schema.Float32), Nullable: true},
	}})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"Events\" (\n  \"entry\" BIGINT NOT NULL,\n  \"MET_pt\" REAL,\n  PRIMARY KEY (\"entry\")\n);"
	if sql != want {
		t.Fatalf("CreateTable =\n%s\nwant:\n%s", sql, want)
	}
	if got := d.DropTable("public.Events"); got != `DROP TABLE IF EXISTS "public"."Events"` {
		t.Fatalf("DropTable = %q", got)
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	var d Dialect
	tests := map[schema.Type]string{
		schema.Bool:    "BOOLEAN",
		schema.Uint8:   "SMALLINT",
		schema.Uint16:  "INTEGER",
		schema.Uint32:  "BIGINT",
		schema.Uint64:  "NUMERIC(20)",
		schema.Float64: "DOUBLE PRECISION",
		schema.Unknown: "TEXT",
	}
	for typ, want := range tests {
		if got := d.MapType(typ); got != want {
			t.Errorf("MapType(%s) = %q, want %q", typ, got, want)
		}
	}
}
