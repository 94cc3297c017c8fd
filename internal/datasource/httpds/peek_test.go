package httpds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"nanoconv/internal/datasource"
)

func TestFetchFirstBytes_SniffsRemoteFormat(t *testing.T) {
	t.Parallel()

	const body = "root\x00\x00\xf4\x3fpayload that must not be read"
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c, _ := newTestClient(0)
	head, err := c.FetchFirstBytes(context.Background(), srv.URL+"/nano", datasource.SniffLen)
	if err != nil {
		t.Fatalf("FetchFirstBytes: %v", err)
	}
	if len(head) != datasource.SniffLen {
		t.Fatalf("got %d bytes, want %d", len(head), datasource.SniffLen)
	}
	if gotRange != "bytes=0-15" {
		t.Fatalf("Range = %q", gotRange)
	}
	if kind := datasource.Sniff(srv.URL+"/nano", head); kind != "root" {
		t.Fatalf("Sniff = %q, want root", kind)
	}
}

func TestFetchFirstBytes_InvalidN(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(0)
	if _, err := c.FetchFirstBytes(context.Background(), "http://example.invalid", 0); err == nil {
		t.Fatal("want error for n=0")
	}
}
