// Package mongosink writes one MongoDB document per entry: independent
// fields at the top level, a sub-document per group and an array of
// sub-documents per collection, plus "_entry" holding the input row number.
package mongosink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"nanoconv/internal/record"
	"nanoconv/internal/schema"
	"nanoconv/internal/sink"
)

// DefaultDatabase is used when neither the options nor the URI name one.
const DefaultDatabase = "nanoconv"

// EntryField holds the input row number in every document.
const EntryField = "_entry"

func init() {
	sink.Register("mongo", sink.Kind{Open: func(ctx context.Context, s *schema.Schema, cfg sink.Config) (sink.Writer, error) {
		return New(ctx, s, cfg)
	}})
}

// Writer is a sink.Writer over one collection.
type Writer struct {
	client *mongo.Client
	coll   *mongo.Collection
	ns     *schema.Schema

	batch    int
	docs     []any
	inserted int64
	start    time.Time
	closed   bool
}

// DatabaseName picks the target database: option "database", else the path
// of the URI, else DefaultDatabase.
func DatabaseName(uri string, cfg sink.Config) (string, error) {
	if db := cfg.Options.String("database", ""); db != "" {
		return db, nil
	}
	cs, err := connstring.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("mongosink: parse uri: %w", err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	return DefaultDatabase, nil
}

// New connects to the URI in cfg.Location and drops the target collection
// so that the run starts from an empty one.
func New(ctx context.Context, s *schema.Schema, cfg sink.Config) (*Writer, error) {
	if cfg.Location == "" {
		return nil, errors.New("mongosink: URI must not be empty")
	}
	dbName, err := DatabaseName(cfg.Location, cfg)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Location))
	if err != nil {
		log.Printf("[MONGO] Connect failed: %v", err)
		return nil, fmt.Errorf("mongosink: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongosink: ping: %w", err)
	}

	coll := client.Database(dbName).Collection(cfg.TableName())
	if err := coll.Drop(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongosink: drop %s.%s: %w", dbName, cfg.TableName(), err)
	}
	log.Printf("[MONGO] Writing to %s.%s batch=%d", dbName, cfg.TableName(), cfg.Batch())

	return &Writer{
		client: client,
		coll:   coll,
		ns:     s,
		batch:  cfg.Batch(),
		docs:   make([]any, 0, cfg.Batch()),
		start:  time.Now(),
	}, nil
}

// Document renders e as an ordered BSON document.
func Document(s *schema.Schema, e *record.Entry) bson.D {
	doc := make(bson.D, 0, 1+len(s.Independent)+len(s.Groups)+len(s.Collections))
	doc = append(doc, bson.E{Key: EntryField, Value: e.Index})
	for i, f := range s.Independent {
		doc = append(doc, bson.E{Key: f.Name, Value: value(e.Scalars[i])})
	}
	for i, g := range s.Groups {
		doc = append(doc, bson.E{Key: g.Name, Value: subDocument(g.Fields, e.Groups[i])})
	}
	for i, c := range s.Collections {
		arr := make(bson.A, len(e.Collections[i]))
		for k, r := range e.Collections[i] {
			arr[k] = subDocument(c.Fields, r)
		}
		doc = append(doc, bson.E{Key: c.Name, Value: arr})
	}
	return doc
}

func subDocument(fields []schema.Field, r record.Record) bson.D {
	d := make(bson.D, len(fields))
	for i, f := range fields {
		d[i] = bson.E{Key: f.Name, Value: value(r[i])}
	}
	return d
}

// value maps unsigned integers onto the signed BSON types: uint8..uint32
// fit in int64, uint64 is stored as int64 when it fits and as a decimal
// string otherwise.
func value(v any) any {
	switch x := v.(type) {
	case uint8:
		return int32(x)
	case uint16:
		return int32(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > 1<<63-1 {
			return fmt.Sprint(x)
		}
		return int64(x)
	}
	return v
}

// Write implements sink.Writer.
func (w *Writer) Write(ctx context.Context, e *record.Entry) error {
	if w.closed {
		return errors.New("mongosink: write after close")
	}
	w.docs = append(w.docs, Document(w.ns, e))
	if len(w.docs) >= w.batch {
		return w.flush(ctx)
	}
	return nil
}

func (w *Writer) flush(ctx context.Context) error {
	if len(w.docs) == 0 {
		return nil
	}
	res, err := w.coll.InsertMany(ctx, w.docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		log.Printf("[MONGO] InsertMany failed after=%d: %v", w.inserted, err)
		return fmt.Errorf("mongosink: insert: %w", err)
	}
	w.inserted += int64(len(res.InsertedIDs))
	w.docs = make([]any, 0, w.batch)
	return nil
}

// Close implements sink.Writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	ctx := context.Background()
	if err := w.flush(ctx); err != nil {
		return err
	}
	w.closed = true
	log.Printf("[MONGO] Inserted %d docs elapsed=%s", w.inserted, time.Since(w.start).Truncate(time.Millisecond))
	if err := w.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongosink: disconnect: %w", err)
	}
	return nil
}

// Abort implements sink.Writer: the collection is dropped.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	ctx := context.Background()
	err := w.coll.Drop(ctx)
	w.client.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("mongosink: abort: drop: %w", err)
	}
	log.Printf("[MONGO] Dropped %s after abort", w.coll.Name())
	return nil
}
