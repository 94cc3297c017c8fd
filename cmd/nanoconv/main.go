// Command nanoconv converts flat NanoAOD event tables into nested columnar
// outputs.
//
// Usage:
//
//	nanoconv [flags] input...
//
// Inputs are ROOT files, SQLite files, Postgres DSNs or http(s) URLs of
// files; glob patterns are expanded. Each input becomes one output named
// after it (nano.root -> nano_nested.parquet) unless -o or a database sink is
// used.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nanoconv/internal/config"
	"nanoconv/internal/convert"
	"nanoconv/internal/metrics"
	"nanoconv/internal/metrics/datadog"
	"nanoconv/internal/metrics/prompush"

	// Register every source and sink kind.
	_ "nanoconv/internal/datasource/all"
	_ "nanoconv/internal/sink/all"
)

// cli holds the parsed command line.
type cli struct {
	cfgPath  string
	validate bool
	describe bool
	set      map[string]bool

	source, inputsFrom, downloadDir, table string
	sink, output, dsn                      string
	batchSize                              int
	fieldNames, counterPrefix              string
	strict                                 bool
	maxEntries, progressEvery              int64
	progress                               bool
	parallel                               int
	metricsBackend, pushgatewayURL         string
	verbose                                bool

	inputs []string
}

func parseFlags(args []string, stderr io.Writer) (*cli, error) {
	c := &cli{set: map[string]bool{}}
	fs := flag.NewFlagSet("nanoconv", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&c.cfgPath, "config", "", "job config JSON path (flags override it)")
	fs.BoolVar(&c.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&c.describe, "describe", false, "print the classified schema of each input and exit")

	fs.StringVar(&c.source, "source", "", "source kind: root, sqlite, postgres (default: sniff each input)")
	fs.StringVar(&c.inputsFrom, "inputs-from", "", "file listing one input per line")
	fs.StringVar(&c.downloadDir, "download-dir", "", "directory for downloaded remote inputs")
	fs.StringVar(&c.table, "table", "", "input tree/table name, also the output table unless the config sets one (default Events)")

	fs.StringVar(&c.sink, "sink", "", "sink kind: parquet, arrow, sqlite, postgres, mssql, mysql, mongo (default parquet)")
	fs.StringVar(&c.output, "o", "", "output file (single input only)")
	fs.StringVar(&c.dsn, "dsn", "", "connection string of a database sink")
	fs.IntVar(&c.batchSize, "batch-size", 0, "entries buffered per sink flush")

	fs.StringVar(&c.fieldNames, "field-names", "", "jagged field naming: trimmed or literal")
	fs.StringVar(&c.counterPrefix, "counter-prefix", "", "counter column prefix (default n)")
	fs.BoolVar(&c.strict, "strict", false, "reject ambiguous column naming")

	fs.Int64Var(&c.maxEntries, "max-entries", 0, "convert at most this many entries per input; 0 or less converts all rows, not none")
	fs.BoolVar(&c.progress, "progress", true, "log progress lines")
	fs.Int64Var(&c.progressEvery, "progress-every", 0, "entries between progress lines")
	fs.IntVar(&c.parallel, "parallel", 0, "inputs converted at once")

	fs.StringVar(&c.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (env METRICS_BACKEND)")
	fs.StringVar(&c.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	fs.BoolVar(&c.verbose, "v", false, "verbose logs")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: nanoconv [flags] input...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { c.set[f.Name] = true })
	c.inputs = fs.Args()
	return c, nil
}

// job loads the config file, if any, and applies the flags that were set.
func (c *cli) job() (config.Job, error) {
	j := config.Default()
	if c.cfgPath != "" {
		var err error
		if j, err = config.Load(c.cfgPath); err != nil {
			return j, err
		}
	}

	if len(c.inputs) > 0 {
		j.Source.Inputs = c.inputs
	}
	strs := map[string]*string{
		"source":          &j.Source.Kind,
		"inputs-from":     &j.Source.InputsFrom,
		"download-dir":    &j.Source.DownloadDir,
		"table":           &j.Source.Table,
		"sink":            &j.Sink.Kind,
		"o":               &j.Sink.Output,
		"dsn":             &j.Sink.DSN,
		"field-names":     &j.Schema.FieldNames,
		"counter-prefix":  &j.Schema.CounterPrefix,
		"metrics-backend": &j.Metrics.Backend,
		"pushgateway-url": &j.Metrics.PushgatewayURL,
	}
	vals := map[string]string{
		"source": c.source, "inputs-from": c.inputsFrom, "download-dir": c.downloadDir,
		"table": c.table, "sink": c.sink, "o": c.output, "dsn": c.dsn,
		"field-names": c.fieldNames, "counter-prefix": c.counterPrefix,
		"metrics-backend": c.metricsBackend, "pushgateway-url": c.pushgatewayURL,
	}
	for name, dst := range strs {
		if c.set[name] {
			*dst = vals[name]
		}
	}
	if c.set["table"] && j.Sink.Table == "" {
		j.Sink.Table = c.table
	}
	if c.set["batch-size"] {
		j.Sink.BatchSize = c.batchSize
	}
	if c.set["strict"] {
		j.Schema.Strict = c.strict
	}
	if c.set["max-entries"] {
		j.Runtime.MaxEntries = c.maxEntries
	}
	if c.set["progress"] {
		p := c.progress
		j.Runtime.Progress = &p
	}
	if c.set["progress-every"] {
		j.Runtime.ProgressEvery = c.progressEvery
	}
	if c.set["parallel"] {
		j.Runtime.Parallel = c.parallel
	}
	if c.set["v"] {
		j.Runtime.Verbose = c.verbose
	}
	return j, nil
}

func main() {
	c, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	j, err := c.job()
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidateJob(j)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid")
	}
	if c.validate {
		log.Printf("configuration is valid")
		return
	}

	closeMetrics := setupMetrics(j, os.Getenv)
	defer closeMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	r := &convert.Runner{Job: j, Describe: c.describe}
	results, err := r.Run(ctx)
	if err != nil {
		closeMetrics()
		fatalf("%v", err)
	}
	if j.Runtime.Verbose && !c.describe {
		var entries int64
		for _, res := range results {
			entries += res.Entries
		}
		log.Printf("done: inputs=%d entries=%d run_id=%s elapsed=%s",
			len(results), entries, r.RunID, time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics installs the backend chosen by flag or config, then env, then
// none. The returned func flushes it.
func setupMetrics(j config.Job, getenv func(string) string) func() {
	name := j.Metrics.Backend
	if name == "" {
		name = getenv("METRICS_BACKEND")
	}

	var (
		b   metrics.Backend
		err error
	)
	switch name {
	case "pushgateway":
		url := j.Metrics.PushgatewayURL
		if url == "" {
			url = getenv("PUSHGATEWAY_URL")
		}
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(j.Job, url)
		if err == nil {
			log.Printf("metrics: backend=pushgateway url=%s job=%s", url, j.Job)
		}
	case "datadog":
		addr := getenv("DD_AGENT_ADDR")
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       addr,
			GlobalTags: append([]string{"job:" + j.Job}, splitTags(getenv("METRICS_TAGS"))...),
		})
		if err == nil {
			log.Printf("metrics: backend=datadog addr=%s", addr)
		}
	case "", "none":
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: %v; metrics disabled", err)
		return func() {}
	}

	metrics.SetBackend(b)
	flushed := false
	return func() {
		if flushed {
			return
		}
		flushed = true
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush: %v", err)
		}
		if c, ok := b.(io.Closer); ok {
			c.Close()
		}
	}
}

// splitTags parses "k:v,k2:v2".
func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "nanoconv: "+format+"\n", a...)
	os.Exit(1)
}
