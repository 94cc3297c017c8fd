// Package convert runs conversion jobs: it resolves the configured inputs,
// classifies each source's columns once, then streams every row through the
// materializer into a sink writer.
//
// One input is one job. Jobs are sequential inside; several inputs may be
// converted at once when the sink writes a file per input.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nanoconv/internal/config"
	"nanoconv/internal/datasource"
	"nanoconv/internal/datasource/file"
	"nanoconv/internal/datasource/httpds"
	"nanoconv/internal/materialize"
	"nanoconv/internal/metrics"
	"nanoconv/internal/progress"
	"nanoconv/internal/schema"
	"nanoconv/internal/sink"
)

// Result summarizes one converted input.
type Result struct {
	Input   string
	Output  string
	Entries int64
	Elapsed time.Duration
}

// Runner executes a job. The zero value is usable; fields override defaults.
type Runner struct {
	Job config.Job

	// Describe prints each input's classification to Out instead of
	// converting it.
	Describe bool
	Out      io.Writer

	// HTTP fetches remote inputs. Defaults to a client with 3 retries.
	HTTP *httpds.Client

	// RunID is stamped into output metadata. Defaults to a random UUID.
	RunID string

	outMu sync.Mutex
}

// Run converts every input of r.Job. The first failing input cancels the
// others; results are returned in input order for the inputs that finished.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	j := r.Job
	inputs, err := file.Expand(j.Source.Inputs, j.Source.InputsFrom)
	if err != nil {
		return nil, fmt.Errorf("convert: inputs: %w", err)
	}
	if len(inputs) == 0 {
		return nil, errors.New("convert: no inputs")
	}

	var kind sink.Kind
	if !r.Describe {
		if kind, err = sink.Lookup(j.Sink.Kind); err != nil {
			return nil, fmt.Errorf("convert: %w", err)
		}
		if len(inputs) > 1 && (!kind.FileBacked() || j.Sink.Output != "") {
			return nil, fmt.Errorf("convert: %d inputs but sink %q writes a single output", len(inputs), j.Sink.Kind)
		}
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.HTTP == nil {
		r.HTTP = httpds.NewClient(httpds.Config{MaxRetries: 3, UserAgent: "nanoconv"})
	}
	if r.Out == nil {
		r.Out = os.Stdout
	}

	results := make([]Result, len(inputs))
	done := make([]bool, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(j.Runtime.Parallel, 1))
	for i, in := range inputs {
		g.Go(func() error {
			res, err := r.File(gctx, kind, in)
			if err != nil {
				return err
			}
			results[i], done[i] = res, true
			return nil
		})
	}
	err = g.Wait()

	out := results[:0]
	for i, ok := range done {
		if ok {
			out = append(out, results[i])
		}
	}
	return out, err
}

// File converts one input with the given sink kind.
func (r *Runner) File(ctx context.Context, kind sink.Kind, input string) (res Result, err error) {
	j := r.Job
	res.Input = input
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		if !r.Describe {
			metrics.RecordFile(j.Job, j.Sink.Kind, err)
		}
	}()

	src, loc, err := r.openSource(ctx, input)
	if err != nil {
		return res, err
	}
	defer src.Close()

	t := time.Now()
	s, err := schema.Classify(src.Columns(), schema.Options{
		CounterPrefix: j.Schema.CounterPrefix,
		FieldNames:    schema.FieldNaming(j.Schema.FieldNames),
		Strict:        j.Schema.Strict,
	})
	metrics.RecordStep(j.Job, metrics.StepClassify, err, time.Since(t))
	if err != nil {
		return res, fmt.Errorf("convert: %s: %w", input, err)
	}
	if j.Runtime.Verbose {
		log.Printf("convert: %s: columns=%d independent=%d groups=%d collections=%d fingerprint=%s",
			input, s.NumColumns(), len(s.Independent), len(s.Groups), len(s.Collections), s.FingerprintHex())
	}
	if r.Describe {
		return res, r.describe(input, s)
	}

	res.Output, err = r.outputLocation(kind, loc)
	if err != nil {
		return res, err
	}
	w, err := sink.Open(ctx, j.Sink.Kind, s, sink.Config{
		Location:  res.Output,
		Table:     j.Sink.Table,
		BatchSize: j.Sink.BatchSize,
		RunID:     r.RunID,
		Source:    input,
		Options:   j.Sink.Options,
	})
	if err != nil {
		return res, fmt.Errorf("convert: open sink %s: %w", j.Sink.Kind, err)
	}

	total, err := src.Len(ctx)
	if err != nil {
		w.Abort()
		return res, fmt.Errorf("convert: %s: %w", input, err)
	}
	if limit := j.Runtime.MaxEntries; limit > 0 && limit < total {
		total = limit
	}
	rep := progress.New(input, total, j.Runtime.ProgressEvery, j.Runtime.ProgressOn())

	t = time.Now()
	res.Entries, err = Entries(ctx, src, materialize.New(s), w, j.Runtime.MaxEntries, rep.Tick)
	if err == nil {
		err = w.Close()
	}
	metrics.RecordStep(j.Job, metrics.StepConvert, err, time.Since(t))
	metrics.RecordEntries(j.Job, metrics.KindRead, res.Entries)
	if err != nil {
		var ce *materialize.ConsistencyError
		if errors.As(err, &ce) {
			metrics.RecordEntries(j.Job, metrics.KindConsistency, 1)
		}
		if aerr := w.Abort(); aerr != nil {
			log.Printf("convert: abort %s: %v", res.Output, aerr)
		}
		return res, fmt.Errorf("convert: %s: %w", input, err)
	}
	rep.Done(res.Entries)

	metrics.RecordEntries(j.Job, metrics.KindWritten, res.Entries)
	metrics.RecordBatches(j.Job, batches(res.Entries, j.Sink.BatchSize))
	log.Printf("convert: input=%s output=%s entries=%d elapsed=%s",
		input, res.Output, res.Entries, time.Since(start).Truncate(time.Millisecond))
	return res, nil
}

// Entries materializes rows 0..limit-1 of src (all rows when limit <= 0)
// and writes each entry to w in order. It stops at the first error and
// returns the number of entries written. tick, when not nil, is called with
// the running count after every write.
func Entries(ctx context.Context, src datasource.Source, m *materialize.Materializer, w sink.Writer, limit int64, tick func(int64)) (int64, error) {
	n := int64(-1)
	if limit > 0 {
		n = limit
	}
	var written int64
	err := src.Scan(ctx, n, func(i int64, row datasource.Row) error {
		e, err := m.Entry(i, row)
		if err != nil {
			return err
		}
		if err := w.Write(ctx, e); err != nil {
			return err
		}
		written++
		if tick != nil {
			tick(written)
		}
		return nil
	})
	return written, err
}

// openSource returns the opened source and the local location it was read
// from (the downloaded file for remote inputs).
func (r *Runner) openSource(ctx context.Context, input string) (src datasource.Source, loc string, err error) {
	j := r.Job
	t := time.Now()
	defer func() { metrics.RecordStep(j.Job, metrics.StepOpenSource, err, time.Since(t)) }()

	loc, kind, err := r.resolve(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("convert: open %s: %w", input, err)
	}
	src, err = datasource.Open(ctx, kind, datasource.Config{
		Location: loc,
		Table:    j.Source.Table,
		Options:  j.Source.Options,
	})
	if err != nil {
		return nil, "", fmt.Errorf("convert: open %s: %w", input, err)
	}
	return src, loc, nil
}

// resolve downloads remote inputs and picks the source kind: the configured
// one, else whatever the leading bytes say.
func (r *Runner) resolve(ctx context.Context, input string) (loc, kind string, err error) {
	kind = r.Job.Source.Kind
	if !file.IsRemote(input) {
		if kind == "" {
			kind, err = sniffLocal(input)
		}
		return input, kind, err
	}

	if kind == "" {
		head, err := r.HTTP.FetchFirstBytes(ctx, input, datasource.SniffLen)
		if err != nil {
			return "", "", err
		}
		if kind = datasource.Sniff(input, head); kind == "" {
			return "", "", fmt.Errorf("unrecognized format of %s", input)
		}
	}
	dir := r.Job.Source.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	loc, err = r.HTTP.Download(ctx, input, dir)
	if err != nil {
		return "", "", err
	}
	log.Printf("convert: fetched %s -> %s", input, loc)
	return loc, kind, nil
}

func sniffLocal(location string) (string, error) {
	if datasource.IsDSN(location) {
		return datasource.Sniff(location, nil), nil
	}
	f, err := os.Open(location)
	if err != nil {
		return "", err
	}
	defer f.Close()
	head := make([]byte, datasource.SniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	kind := datasource.Sniff(location, head[:n])
	if kind == "" {
		return "", fmt.Errorf("unrecognized format of %s; set the source kind", location)
	}
	return kind, nil
}

// outputLocation is the explicit output, the DSN of a database sink, or the
// local input path with the sink's suffix.
func (r *Runner) outputLocation(kind sink.Kind, loc string) (string, error) {
	j := r.Job
	switch {
	case !kind.FileBacked():
		return j.Sink.DSN, nil
	case j.Sink.Output != "":
		return j.Sink.Output, nil
	case datasource.IsDSN(loc):
		return "", fmt.Errorf("convert: %s: cannot derive an output file name; set the output", loc)
	}
	return sink.OutputPath(loc, kind.Suffix), nil
}

func (r *Runner) describe(input string, s *schema.Schema) error {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if _, err := fmt.Fprintf(r.Out, "%s (fingerprint %s)\n", input, s.FingerprintHex()); err != nil {
		return err
	}
	return s.Describe(r.Out)
}

func batches(entries int64, size int) int64 {
	if size <= 0 {
		size = sink.DefaultBatchSize
	}
	return (entries + int64(size) - 1) / int64(size)
}
