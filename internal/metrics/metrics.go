// Package metrics records conversion counters and step timings through a
// pluggable Backend.
//
// The default backend discards everything, so instrumented code never has to
// check whether metrics are configured. Concrete backends (Pushgateway,
// DogStatsD) live in subpackages and are installed once by the CLI with
// SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal    = "nanoconv_step_total"
	StepDuration = "nanoconv_step_duration_seconds"
	EntriesTotal = "nanoconv_entries_total"
	BatchesTotal = "nanoconv_batches_total"
	FilesTotal   = "nanoconv_files_total"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Steps timed by RecordStep.
const (
	StepOpenSource = "open_source"
	StepClassify   = "classify"
	StepConvert    = "convert"
)

// Entry kinds for RecordEntries.
const (
	KindRead        = "read"
	KindWritten     = "written"
	KindConsistency = "consistency_errors"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend receives counter increments and duration observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered data, if the backend buffers.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the installed backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// RecordStep counts one execution of step and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err)}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordEntries adds delta entries of the given kind (KindRead, KindWritten,
// KindConsistency). Non-positive deltas are ignored.
func RecordEntries(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(EntriesTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordBatches adds delta flushed sink batches for job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}

// RecordFile counts one converted (or failed) input file.
func RecordFile(job, sinkKind string, err error) {
	current().IncCounter(FilesTotal, 1, Labels{"job": job, "sink": sinkKind, "status": status(err)})
}
