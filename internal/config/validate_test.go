package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validJob() Job {
	j := Default()
	j.Source.Inputs = []string{"nano.root"}
	return j
}

func TestValidateJob_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidateJob(validJob()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidateJob_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Job)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"empty job", func(j *Job) { j.Job = " " }, SeverityError, "job", "must not be empty"},
		{"no inputs", func(j *Job) { j.Source.Inputs = nil }, SeverityError, "source.inputs", "no inputs"},
		{"unknown source", func(j *Job) { j.Source.Kind = "hdf5" }, SeverityWarning, "source.kind", "hdf5"},
		{"bad field names", func(j *Job) { j.Schema.FieldNames = "short" }, SeverityError, "schema.field_names", "short"},
		{"prefix with underscore", func(j *Job) { j.Schema.CounterPrefix = "n_" }, SeverityWarning, "schema.counter_prefix", "n_"},
		{"empty sink", func(j *Job) { j.Sink.Kind = "" }, SeverityError, "sink.kind", "must not be empty"},
		{"unknown sink", func(j *Job) { j.Sink.Kind = "csv" }, SeverityWarning, "sink.kind", "csv"},
		{"output with many inputs", func(j *Job) {
			j.Source.Inputs = []string{"a.root", "b.root"}
			j.Sink.Output = "x.parquet"
		}, SeverityError, "sink.output", "more than one input"},
		{"db sink without dsn", func(j *Job) { j.Sink.Kind = "postgres" }, SeverityError, "sink.dsn", "requires a dsn"},
		{"mysql sink without dsn", func(j *Job) { j.Sink.Kind = "mysql" }, SeverityError, "sink.dsn", "requires a dsn"},
		{"db sink with list file", func(j *Job) {
			j.Sink.Kind, j.Sink.DSN = "mongo", "mongodb://localhost"
			j.Source.InputsFrom = "inputs.txt"
		}, SeverityError, "source.inputs", "one input at a time"},
		{"negative batch", func(j *Job) { j.Sink.BatchSize = -1 }, SeverityError, "sink.batch_size", "negative"},
		{"bad codec", func(j *Job) { j.Sink.Options = Options{"compression": "lzo"} }, SeverityError, "sink.options.compression", "lzo"},
		{"negative cap", func(j *Job) { j.Runtime.MaxEntries = -5 }, SeverityError, "runtime.max_entries", "negative"},
		{"negative progress", func(j *Job) { j.Runtime.ProgressEvery = -1 }, SeverityError, "runtime.progress_every", "negative"},
		{"negative parallel", func(j *Job) { j.Runtime.Parallel = -1 }, SeverityError, "runtime.parallel", "negative"},
		{"unknown metrics", func(j *Job) { j.Metrics.Backend = "statsd" }, SeverityWarning, "metrics.backend", "statsd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			j := validJob()
			tt.mutate(&j)
			issues := ValidateJob(j)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tt.sev, tt.path, tt.msg, issues)
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatal("warnings only: HasErrors = true")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatal("HasErrors = false with an error present")
	}
	iss := Issue{Severity: SeverityError, Path: "sink.dsn", Message: "missing"}
	if got := iss.Error(); got != "error at sink.dsn: missing" {
		t.Fatalf("Error() = %q", got)
	}
}
