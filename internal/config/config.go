// Package config defines the JSON job file for a nanoconv run and a typed
// helper for kind-specific option bags.
//
// Example:
//
//	{
//	  "job":     "nano2018",
//	  "source":  { "inputs": ["data/*.root"], "table": "Events" },
//	  "schema":  { "field_names": "trimmed", "strict": true },
//	  "sink":    { "kind": "parquet", "batch_size": 5000, "options": { "compression": "zstd" } },
//	  "runtime": { "max_entries": 100000, "progress_every": 10000, "parallel": 4 }
//	}
//
// Command-line flags override the values read from the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultJob names runs that do not set one; it labels metrics.
const DefaultJob = "nanoconv"

// DefaultProgressEvery is the progress reporting interval, in entries.
const DefaultProgressEvery = 1000

// Job is the top-level object of a job file.
type Job struct {
	// Job labels metrics and log lines.
	Job string `json:"job"`

	Source  Source  `json:"source"`
	Schema  Schema  `json:"schema"`
	Sink    Sink    `json:"sink"`
	Runtime Runtime `json:"runtime"`
	Metrics Metrics `json:"metrics"`
}

// Source selects the inputs and how to read them.
type Source struct {
	// Kind is the row source ("root", "sqlite", "postgres"). Empty means
	// sniff each input.
	Kind string `json:"kind"`

	// Inputs are paths, glob patterns, http(s) URLs or DSNs.
	Inputs []string `json:"inputs"`

	// InputsFrom names a list file with one input per line.
	InputsFrom string `json:"inputs_from"`

	// Table is the tree or table holding the events. Defaults to "Events".
	Table string `json:"table"`

	// DownloadDir receives remote inputs. Defaults to the system temp dir.
	DownloadDir string `json:"download_dir"`

	Options Options `json:"options"`
}

// Schema tunes column classification.
type Schema struct {
	CounterPrefix string `json:"counter_prefix"`

	// FieldNames is "trimmed" (default) or "literal".
	FieldNames string `json:"field_names"`

	Strict bool `json:"strict"`
}

// Sink selects the output.
type Sink struct {
	// Kind is "parquet", "arrow", "sqlite", "postgres", "mssql", "mysql" or
	// "mongo".
	Kind string `json:"kind"`

	// Output overrides the derived output file of a file sink. Only valid
	// with a single input.
	Output string `json:"output"`

	// DSN is the connection string of a database sink.
	DSN string `json:"dsn"`

	Table     string  `json:"table"`
	BatchSize int     `json:"batch_size"`
	Options   Options `json:"options"`
}

// Runtime controls how much is converted and how it is reported.
type Runtime struct {
	// MaxEntries caps the number of entries per input; 0 or less means no
	// cap (every row is converted, never zero rows).
	MaxEntries int64 `json:"max_entries"`

	// Progress toggles progress lines; unset means on.
	Progress *bool `json:"progress"`

	ProgressEvery int64 `json:"progress_every"`

	// Parallel is the number of inputs converted at once.
	Parallel int `json:"parallel"`

	Verbose bool `json:"verbose"`
}

// ProgressOn reports whether progress lines are enabled.
func (r Runtime) ProgressOn() bool { return r.Progress == nil || *r.Progress }

// Metrics selects the metrics backend ("none", "pushgateway", "datadog").
type Metrics struct {
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
}

// Default returns a job with every default filled in.
func Default() Job {
	return Job{
		Job:     DefaultJob,
		Sink:    Sink{Kind: "parquet", Options: Options{}},
		Source:  Source{Options: Options{}},
		Runtime: Runtime{ProgressEvery: DefaultProgressEvery, Parallel: 1},
	}
}

// Load reads a job file on top of Default. Unknown keys are rejected.
func Load(path string) (Job, error) {
	j := Default()
	f, err := os.Open(path)
	if err != nil {
		return j, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return j, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return j, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It returns the provided default when a key is absent or of an unexpected
// type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// which is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null "options" object to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
