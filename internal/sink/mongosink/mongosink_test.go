package mongosink

import (
	"context"
	"os"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"nanoconv/internal/record"
	"nanoconv/internal/schema"
	"nanoconv/internal/sink"
)

func nanoSchema(tb testing.TB) *schema.Schema {
	tb.Helper()
	s, err := schema.Classify([]schema.Column{
		{Name: "run", TypeName: "UInt_t"},
		{Name: "nJet", TypeName: "UInt_t"},
		{Name: "Jet_pt", TypeName: "Float_t", Jagged: true},
		{Name: "Muon_px", TypeName: "Float_t"},
	}, schema.Options{})
	if err != nil {
		tb.Fatalf("Classify: %v", err)
	}
	return s
}

func TestDocument(t *testing.T) {
	t.Parallel()

	s := nanoSchema(t)
	e := record.New(s, 4)
	e.Scalars[0] = uint32(7)
	e.Groups[0][0] = float32(1.5)
	e.Append(0, 1)[0] = float32(40)
	e.Append(0, 1)[0] = float32(25)

	got := Document(s, e)
	want := bson.D{
		{Key: "_entry", Value: int64(4)},
		{Key: "run", Value: int64(7)},
		{Key: "Muon", Value: bson.D{{Key: "px", Value: float32(1.5)}}},
		{Key: "Jet", Value: bson.A{
			bson.D{{Key: "pt", Value: float32(40)}},
			bson.D{{Key: "pt", Value: float32(25)}},
		}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Document =\n%v\nwant\n%v", got, want)
	}

	empty := Document(s, record.New(s, 0))
	if arr := empty[3].Value.(bson.A); len(arr) != 0 {
		t.Fatalf("empty collection = %v, want []", arr)
	}
}

func TestValue(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want any }{
		{uint8(3), int32(3)},
		{uint16(3), int32(3)},
		{uint32(3), int64(3)},
		{uint64(3), int64(3)},
		{uint64(1) << 63, "9223372036854775808"},
		{float32(2), float32(2)},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := value(tt.in); got != tt.want {
			t.Errorf("value(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestDatabaseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri  string
		opts map[string]any
		want string
	}{
		{"mongodb://localhost:27017", nil, DefaultDatabase},
		{"mongodb://u:p@localhost/physics?authSource=admin", nil, "physics"},
		{"mongodb://localhost/physics", map[string]any{"database": "other"}, "other"},
	}
	for _, tt := range tests {
		got, err := DatabaseName(tt.uri, sink.Config{Options: tt.opts})
		if err != nil || got != tt.want {
			t.Errorf("DatabaseName(%q) = %q, %v; want %q", tt.uri, got, err, tt.want)
		}
	}
	if _, err := DatabaseName("http://nope", sink.Config{}); err == nil {
		t.Fatal("bad scheme: want error")
	}
}

// TestWriter_Integration runs against a live server when NANOCONV_MONGO_URI
// is set.
func TestWriter_Integration(t *testing.T) {
	uri := os.Getenv("NANOCONV_MONGO_URI")
	if uri == "" {
		t.Skip("NANOCONV_MONGO_URI not set")
	}
	ctx := context.Background()
	s := nanoSchema(t)
	cfg := sink.Config{Location: uri, Table: "nanoconv_it", BatchSize: 2, Options: map[string]any{"database": "nanoconv_test"}}

	w, err := sink.Open(ctx, "mongo", s, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := int64(0); i < 3; i++ {
		e := record.New(s, i)
		e.Scalars[0] = uint32(1)
		if err := w.Write(ctx, e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Disconnect(ctx)
	coll := client.Database("nanoconv_test").Collection("nanoconv_it")
	defer coll.Drop(ctx)

	n, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil || n != 3 {
		t.Fatalf("CountDocuments = %d, %v; want 3", n, err)
	}
}
