// Package progress logs periodic "entry i of n" lines while a conversion
// runs.
package progress

import (
	"log"
	"time"

	"github.com/dustin/go-humanize"
)

// Reporter logs a progress line at a fixed entry interval. A nil *Reporter
// is valid and silent.
type Reporter struct {
	label string
	total int64
	every int64
	start time.Time
	last  int64

	now  func() time.Time
	logf func(format string, args ...any)
}

// New returns a reporter for total entries, logging every `every` entries.
// It returns nil when disabled, so callers can call Tick unconditionally.
func New(label string, total, every int64, enabled bool) *Reporter {
	if !enabled {
		return nil
	}
	if every <= 0 {
		every = 1000
	}
	return &Reporter{
		label: label,
		total: total,
		every: every,
		start: time.Now(),
		now:   time.Now,
		logf:  log.Printf,
	}
}

// Tick records that done entries have been written.
func (r *Reporter) Tick(done int64) {
	if r == nil || done <= 0 || done%r.every != 0 {
		return
	}
	r.report(done)
}

// Done logs the final count if it was not just logged by Tick.
func (r *Reporter) Done(done int64) {
	if r == nil || done == r.last {
		return
	}
	r.report(done)
}

func (r *Reporter) report(done int64) {
	r.last = done
	elapsed := r.now().Sub(r.start)
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(done) / s
	}

	total, eta := "?", "?"
	if r.total > 0 {
		total = humanize.Comma(r.total)
	}
	if r.total > 0 && rate > 0 && done <= r.total {
		eta = time.Duration(float64(r.total-done) / rate * float64(time.Second)).Truncate(time.Second).String()
	}
	r.logf("progress: %s: entry %s of %s rate=%s/s elapsed=%s eta=%s",
		r.label,
		humanize.Comma(done),
		total,
		humanize.CommafWithDigits(rate, 1),
		elapsed.Truncate(time.Millisecond),
		eta,
	)
}
