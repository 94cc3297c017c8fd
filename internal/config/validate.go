package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes one validation finding. Path is a dotted path into the
// job file (e.g. "sink.dsn").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	knownSources = map[string]bool{"root": true, "sqlite": true, "postgres": true}

	// knownSinks maps each sink kind to whether it writes a local file.
	knownSinks = map[string]bool{
		"parquet":  true,
		"arrow":    true,
		"sqlite":   true,
		"postgres": false,
		"mssql":    false,
		"mysql":    false,
		"mongo":    false,
	}

	knownCodecs = map[string]bool{"snappy": true, "zstd": true, "gzip": true, "brotli": true, "none": true, "uncompressed": true}
)

// ValidateJob performs static checks on j. It does not mutate j; callers
// decide whether warnings are fatal.
func ValidateJob(j Job) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(j.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics and log lines")
	}

	// Source.
	if j.Source.Kind != "" && !knownSources[j.Source.Kind] {
		add(SeverityWarning, "source.kind", "unknown source kind %q; ensure a matching implementation is registered", j.Source.Kind)
	}
	if len(j.Source.Inputs) == 0 && j.Source.InputsFrom == "" {
		add(SeverityError, "source.inputs", "no inputs; pass input paths or set source.inputs_from")
	}
	multi := len(j.Source.Inputs) > 1 || j.Source.InputsFrom != ""

	// Schema.
	switch j.Schema.FieldNames {
	case "", "trimmed", "literal":
	default:
		add(SeverityError, "schema.field_names", "field_names must be \"trimmed\" or \"literal\", got %q", j.Schema.FieldNames)
	}
	if strings.Contains(j.Schema.CounterPrefix, "_") {
		add(SeverityWarning, "schema.counter_prefix", "counter_prefix %q contains \"_\"; counters may be mistaken for attributes", j.Schema.CounterPrefix)
	}

	// Sink.
	fileBacked, known := knownSinks[j.Sink.Kind]
	switch {
	case strings.TrimSpace(j.Sink.Kind) == "":
		add(SeverityError, "sink.kind", "sink.kind must not be empty")
	case !known:
		add(SeverityWarning, "sink.kind", "unknown sink kind %q; ensure a matching implementation is registered", j.Sink.Kind)
	case fileBacked:
		if j.Sink.Output != "" && multi {
			add(SeverityError, "sink.output", "output names a single file but more than one input is configured")
		}
	default:
		if strings.TrimSpace(j.Sink.DSN) == "" {
			add(SeverityError, "sink.dsn", "%s sink requires a dsn", j.Sink.Kind)
		}
		if multi {
			add(SeverityError, "source.inputs", "%s sink writes one table per run; convert one input at a time", j.Sink.Kind)
		}
	}
	if j.Sink.BatchSize < 0 {
		add(SeverityError, "sink.batch_size", "batch_size must not be negative")
	}
	if j.Sink.Kind == "parquet" {
		if c := j.Sink.Options.String("compression", "snappy"); !knownCodecs[strings.ToLower(c)] {
			add(SeverityError, "sink.options.compression", "unknown compression %q", c)
		}
	}

	// Runtime.
	r := j.Runtime
	if r.MaxEntries < 0 {
		add(SeverityError, "runtime.max_entries", "max_entries must not be negative")
	}
	if r.ProgressEvery < 0 {
		add(SeverityError, "runtime.progress_every", "progress_every must not be negative")
	}
	if r.Parallel < 0 {
		add(SeverityError, "runtime.parallel", "parallel must not be negative")
	}

	// Metrics.
	switch j.Metrics.Backend {
	case "", "none", "pushgateway", "datadog":
	default:
		add(SeverityWarning, "metrics.backend", "unknown metrics backend %q; metrics disabled", j.Metrics.Backend)
	}

	return issues
}
