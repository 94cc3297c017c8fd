package sink

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"nanoconv/internal/record"
	"nanoconv/internal/schema"
)

type nopWriter struct{ cfg Config }

func (nopWriter) Write(context.Context, *record.Entry) error { return nil }
func (nopWriter) Close() error                               { return nil }
func (nopWriter) Abort() error                               { return nil }

func TestRegistry(t *testing.T) {
	Register("test-nop", Kind{Suffix: "_nested.nop", Open: func(_ context.Context, _ *schema.Schema, cfg Config) (Writer, error) {
		return nopWriter{cfg: cfg}, nil
	}})

	k, err := Lookup("test-nop")
	if err != nil || !k.FileBacked() || k.Suffix != "_nested.nop" {
		t.Fatalf("Lookup = %+v, %v", k, err)
	}
	w, err := Open(context.Background(), "test-nop", &schema.Schema{}, Config{Location: "x"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := w.(nopWriter).cfg.Location; got != "x" {
		t.Fatalf("Location = %q", got)
	}

	found := false
	for _, name := range Kinds() {
		found = found || name == "test-nop"
	}
	if !found {
		t.Fatalf("Kinds() = %v, missing test-nop", Kinds())
	}

	_, err = Open(context.Background(), "no-such-sink", &schema.Schema{}, Config{})
	if !errors.Is(err, ErrUnknownKind) || !strings.Contains(err.Error(), "test-nop") {
		t.Fatalf("err = %v, want ErrUnknownKind listing registered kinds", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register did not panic")
		}
	}()
	Register("test-nop", k)
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, suffix, want string }{
		{"nano.root", "_nested.parquet", "nano_nested.parquet"},
		{"/data/run.2018/nano.sqlite", "_nested.arrow", "/data/run.2018/nano_nested.arrow"},
		{"/data/run.2018/nano", "_nested.sqlite", "/data/run.2018/nano_nested.sqlite"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in, tt.suffix); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	if c.TableName() != DefaultTable || c.Batch() != DefaultBatchSize {
		t.Fatalf("defaults = %q, %d", c.TableName(), c.Batch())
	}
	c = Config{Table: "public.Events", BatchSize: 10}
	if c.TableName() != "public.Events" || c.Batch() != 10 {
		t.Fatalf("explicit = %q, %d", c.TableName(), c.Batch())
	}
}

func TestConfig_Metadata(t *testing.T) {
	t.Parallel()

	s := &schema.Schema{Independent: []schema.Field{{Name: "run", Type: schema.Uint32}}}
	keys, values := Config{RunID: "r1"}.Metadata(s)
	if !reflect.DeepEqual(keys, []string{MetaFingerprint, MetaRunID}) {
		t.Fatalf("keys = %v", keys)
	}
	if values[0] != s.FingerprintHex() || values[1] != "r1" {
		t.Fatalf("values = %v", values)
	}
}
