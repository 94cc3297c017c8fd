// Package arrowsink writes entries as nested Arrow data, either to a Parquet
// file or to an Arrow IPC file.
//
// Independent columns become top-level fields, each group a struct and each
// collection a list of structs. Entries are buffered into record batches of
// Config.BatchSize rows; in Parquet every batch is one row group.
package arrowsink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"nanoconv/internal/record"
	"nanoconv/internal/schema"
	"nanoconv/internal/sink"
)

// Format selects the on-disk encoding.
type Format int

const (
	Parquet Format = iota
	IPC
)

func (f Format) String() string {
	if f == IPC {
		return "arrow"
	}
	return "parquet"
}

func init() {
	sink.Register("parquet", sink.Kind{Suffix: "_nested.parquet", Open: opener(Parquet)})
	sink.Register("arrow", sink.Kind{Suffix: "_nested.arrow", Open: opener(IPC)})
}

func opener(f Format) sink.Opener {
	return func(_ context.Context, s *schema.Schema, cfg sink.Config) (sink.Writer, error) {
		return New(f, s, cfg)
	}
}

// batchWriter is the part of the Parquet and IPC file writers we use.
type batchWriter interface {
	Write(rec arrow.Record) error
	Close() error
}

// Writer is a sink.Writer producing one Parquet or Arrow IPC file.
type Writer struct {
	format Format
	path   string
	ns     *schema.Schema

	f   *os.File
	buf *bufio.Writer
	out batchWriter

	schema  *arrow.Schema
	builder *array.RecordBuilder
	batch   int
	pending int
	closed  bool
}

// New creates cfg.Location and prepares to write entries shaped by s.
// Option "compression" picks the Parquet codec: snappy (default), zstd,
// gzip, brotli or none.
func New(format Format, s *schema.Schema, cfg sink.Config) (*Writer, error) {
	if cfg.Location == "" {
		return nil, fmt.Errorf("arrowsink: %s: output path must not be empty", format)
	}
	keys, values := cfg.Metadata(s)
	meta := arrow.NewMetadata(keys, values)
	as := arrow.NewSchema(ArrowFields(s), &meta)

	var props *parquet.WriterProperties
	if format == Parquet {
		codec, err := codecFor(cfg.Options.String("compression", "snappy"))
		if err != nil {
			return nil, err
		}
		props = parquet.NewWriterProperties(
			parquet.WithCompression(codec),
			parquet.WithMaxRowGroupLength(int64(cfg.Batch())),
		)
	}

	f, err := os.Create(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("arrowsink: create %s: %w", cfg.Location, err)
	}
	w := &Writer{
		format: format,
		path:   cfg.Location,
		ns:     s,
		f:      f,
		buf:    bufio.NewWriterSize(f, 1<<20),
		schema: as,
		batch:  cfg.Batch(),
	}

	// The encoders only see a plain io.Writer so that closing them leaves
	// the file to us.
	out := struct{ *bufio.Writer }{w.buf}
	switch format {
	case Parquet:
		w.out, err = pqarrow.NewFileWriter(as, out, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	case IPC:
		w.out, err = ipc.NewFileWriter(out, ipc.WithSchema(as), ipc.WithAllocator(memory.DefaultAllocator))
	default:
		err = fmt.Errorf("unsupported format %d", format)
	}
	if err != nil {
		f.Close()
		os.Remove(cfg.Location)
		return nil, fmt.Errorf("arrowsink: %s writer: %w", format, err)
	}
	w.builder = array.NewRecordBuilder(memory.DefaultAllocator, as)
	return w, nil
}

func codecFor(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("arrowsink: unknown compression %q", name)
}

// ArrowFields returns the top-level Arrow fields for s, in output order.
func ArrowFields(s *schema.Schema) []arrow.Field {
	out := make([]arrow.Field, 0, len(s.Independent)+len(s.Groups)+len(s.Collections))
	for _, f := range s.Independent {
		out = append(out, leafField(f))
	}
	for _, g := range s.Groups {
		out = append(out, arrow.Field{Name: g.Name, Type: structOf(g.Fields)})
	}
	for _, c := range s.Collections {
		out = append(out, arrow.Field{Name: c.Name, Type: arrow.ListOf(structOf(c.Fields))})
	}
	return out
}

func structOf(fields []schema.Field) *arrow.StructType {
	fs := make([]arrow.Field, len(fields))
	for i, f := range fields {
		fs[i] = leafField(f)
	}
	return arrow.StructOf(fs...)
}

func leafField(f schema.Field) arrow.Field {
	return arrow.Field{Name: f.Name, Type: DataType(f.Type), Nullable: true}
}

// DataType maps a type tag to its Arrow type. Unknown columns are written
// as their string rendering.
func DataType(t schema.Type) arrow.DataType {
	switch t {
	case schema.Bool:
		return arrow.FixedWidthTypes.Boolean
	case schema.Int8:
		return arrow.PrimitiveTypes.Int8
	case schema.Uint8:
		return arrow.PrimitiveTypes.Uint8
	case schema.Int16:
		return arrow.PrimitiveTypes.Int16
	case schema.Uint16:
		return arrow.PrimitiveTypes.Uint16
	case schema.Int32:
		return arrow.PrimitiveTypes.Int32
	case schema.Uint32:
		return arrow.PrimitiveTypes.Uint32
	case schema.Int64:
		return arrow.PrimitiveTypes.Int64
	case schema.Uint64:
		return arrow.PrimitiveTypes.Uint64
	case schema.Float32:
		return arrow.PrimitiveTypes.Float32
	case schema.Float64:
		return arrow.PrimitiveTypes.Float64
	}
	return arrow.BinaryTypes.String
}

// Write implements sink.Writer.
func (w *Writer) Write(_ context.Context, e *record.Entry) error {
	if w.closed {
		return errors.New("arrowsink: write after close")
	}
	col := 0
	for i, f := range w.ns.Independent {
		if err := appendValue(w.builder.Field(col), f, e.Scalars[i]); err != nil {
			return fmt.Errorf("arrowsink: entry %d: %w", e.Index, err)
		}
		col++
	}
	for g, grp := range w.ns.Groups {
		sb := w.builder.Field(col).(*array.StructBuilder)
		if err := appendStruct(sb, grp.Fields, e.Groups[g]); err != nil {
			return fmt.Errorf("arrowsink: entry %d: %s: %w", e.Index, grp.Name, err)
		}
		col++
	}
	for c, coll := range w.ns.Collections {
		lb := w.builder.Field(col).(*array.ListBuilder)
		lb.Append(true)
		sb := lb.ValueBuilder().(*array.StructBuilder)
		for k, r := range e.Collections[c] {
			if err := appendStruct(sb, coll.Fields, r); err != nil {
				return fmt.Errorf("arrowsink: entry %d: %s[%d]: %w", e.Index, coll.Name, k, err)
			}
		}
		col++
	}

	w.pending++
	if w.pending >= w.batch {
		return w.flush()
	}
	return nil
}

func appendStruct(sb *array.StructBuilder, fields []schema.Field, r record.Record) error {
	sb.Append(true)
	for i, f := range fields {
		if err := appendValue(sb.FieldBuilder(i), f, r[i]); err != nil {
			return err
		}
	}
	return nil
}

func appendValue(b array.Builder, f schema.Field, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	if f.Type != schema.Unknown {
		cv, err := record.Convert(v, f.Type)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		v = cv
	}
	switch b := b.(type) {
	case *array.BooleanBuilder:
		b.Append(v.(bool))
	case *array.Int8Builder:
		b.Append(v.(int8))
	case *array.Uint8Builder:
		b.Append(v.(uint8))
	case *array.Int16Builder:
		b.Append(v.(int16))
	case *array.Uint16Builder:
		b.Append(v.(uint16))
	case *array.Int32Builder:
		b.Append(v.(int32))
	case *array.Uint32Builder:
		b.Append(v.(uint32))
	case *array.Int64Builder:
		b.Append(v.(int64))
	case *array.Uint64Builder:
		b.Append(v.(uint64))
	case *array.Float32Builder:
		b.Append(v.(float32))
	case *array.Float64Builder:
		b.Append(v.(float64))
	case *array.StringBuilder:
		if s, ok := v.(string); ok {
			b.Append(s)
		} else {
			b.Append(fmt.Sprint(v))
		}
	default:
		return fmt.Errorf("%s: no appender for %T", f.Name, b)
	}
	return nil
}

func (w *Writer) flush() error {
	if w.pending == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	w.pending = 0
	if err := w.out.Write(rec); err != nil {
		return fmt.Errorf("arrowsink: write batch: %w", err)
	}
	return nil
}

// Close implements sink.Writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.builder.Release()

	err := w.flush()
	if cerr := w.out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("arrowsink: close %s writer: %w", w.format, cerr)
	}
	if ferr := w.buf.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("arrowsink: flush %s: %w", w.path, ferr)
	}
	if ferr := w.f.Close(); err == nil && ferr != nil {
		err = fmt.Errorf("arrowsink: close %s: %w", w.path, ferr)
	}
	return err
}

// Abort implements sink.Writer: the output file is removed.
func (w *Writer) Abort() error {
	if !w.closed {
		w.closed = true
		w.builder.Release()
		w.out.Close()
		w.f.Close()
	}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("arrowsink: remove %s: %w", w.path, err)
	}
	return nil
}
