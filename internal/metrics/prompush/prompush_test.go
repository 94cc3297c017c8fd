package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"nanoconv/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func summaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()
	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatal("summary observer is not a prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write: %v", err)
	}
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := NewBackend("test", "http://example.invalid")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		job     string
		url     string
		wantErr bool
		wantJob string
	}{
		{name: "missing gateway", job: "x", wantErr: true},
		{name: "default job", url: "http://pg:9091", wantJob: DefaultJob},
		{name: "explicit job", job: "nightly", url: "http://pg:9091", wantJob: "nightly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.job, tt.url)
			if tt.wantErr {
				if err == nil || b != nil {
					t.Fatalf("NewBackend(%q, %q) = %v, %v; want error", tt.job, tt.url, b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend: %v", err)
			}
			if b.jobName != tt.wantJob {
				t.Fatalf("jobName = %q, want %q", b.jobName, tt.wantJob)
			}
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		calls func(b *Backend)
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "step counter",
			calls: func(b *Backend) {
				b.IncCounter(metrics.StepTotal, 3, metrics.Labels{"step": metrics.StepConvert, "status": metrics.StatusSuccess})
			},
			check: func(t *testing.T, b *Backend) {
				if got := counterValue(t, b.stepCounter.WithLabelValues(metrics.StepConvert, metrics.StatusSuccess)); got != 3 {
					t.Fatalf("step counter = %v, want 3", got)
				}
			},
		},
		{
			name: "entries by kind",
			calls: func(b *Backend) {
				b.IncCounter(metrics.EntriesTotal, 5, metrics.Labels{"kind": metrics.KindRead})
				b.IncCounter(metrics.EntriesTotal, 4, metrics.Labels{"kind": metrics.KindWritten})
			},
			check: func(t *testing.T, b *Backend) {
				if got := counterValue(t, b.entries.WithLabelValues(metrics.KindRead)); got != 5 {
					t.Fatalf("read = %v, want 5", got)
				}
				if got := counterValue(t, b.entries.WithLabelValues(metrics.KindWritten)); got != 4 {
					t.Fatalf("written = %v, want 4", got)
				}
			},
		},
		{
			name: "files and batches",
			calls: func(b *Backend) {
				b.IncCounter(metrics.FilesTotal, 1, metrics.Labels{"sink": "parquet", "status": metrics.StatusFailure})
				b.IncCounter(metrics.BatchesTotal, 2, nil)
				b.IncCounter(metrics.BatchesTotal, 0.5, nil)
			},
			check: func(t *testing.T, b *Backend) {
				if got := counterValue(t, b.files.WithLabelValues("parquet", metrics.StatusFailure)); got != 1 {
					t.Fatalf("files = %v, want 1", got)
				}
				if got := counterValue(t, b.batches); got != 2.5 {
					t.Fatalf("batches = %v, want 2.5", got)
				}
			},
		},
		{
			name: "unknown name ignored",
			calls: func(b *Backend) {
				b.IncCounter("other_total", 10, metrics.Labels{"kind": metrics.KindRead})
			},
			check: func(t *testing.T, b *Backend) {
				if got := counterValue(t, b.entries.WithLabelValues(metrics.KindRead)); got != 0 {
					t.Fatalf("read = %v, want 0", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := newBackend(t)
			tt.calls(b)
			tt.check(t, b)
		})
	}
}

func TestZeroBackend_NoPanic(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.EntriesTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.FilesTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	lbls := metrics.Labels{"step": metrics.StepClassify, "status": metrics.StatusSuccess}
	b.ObserveHistogram(metrics.StepDuration, 1.5, lbls)
	b.ObserveHistogram("other_seconds", 2, lbls)

	n, sum := summaryCountSum(t, b.stepDuration, metrics.StepClassify, metrics.StatusSuccess)
	if n != 1 || sum != 1.5 {
		t.Fatalf("summary = (%d, %v), want (1, 1.5)", n, sum)
	}
}

func TestFlush_PushesJobGroup(t *testing.T) {
	t.Parallel()

	type req struct {
		method, path, body string
	}
	got := make(chan req, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- req{r.Method, r.URL.Path, string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("nightly", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.EntriesTotal, 7, metrics.Labels{"kind": metrics.KindWritten})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := <-got
	if r.method != http.MethodPut {
		t.Fatalf("method = %s, want PUT", r.method)
	}
	if !strings.HasSuffix(r.path, "/job/nightly") {
		t.Fatalf("path = %s", r.path)
	}
	if r.body == "" {
		t.Fatal("empty push body")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err == nil {
		t.Fatal("Flush: want error on 500")
	}
}

func BenchmarkIncCounterEntries(b *testing.B) {
	be, err := NewBackend("bench", "http://example.invalid")
	if err != nil {
		b.Fatalf("NewBackend: %v", err)
	}
	lbls := metrics.Labels{"kind": metrics.KindRead}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		be.IncCounter(metrics.EntriesTotal, 1, lbls)
	}
}
