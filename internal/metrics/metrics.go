// Package metrics records operational counters and step timings for the job
// behind a pluggable Backend.
//
// The global backend defaults to a no-op, so instrumentation is always safe
// to call. cmd/sparkify installs a Summary, which is logged when the run
// ends, and optionally a Pushgateway backend (subpackage prompush).
package metrics

import (
	"errors"
	"time"
)

// Metric names.
const (
	StepTotal    = "sparkify_step_total"
	StepDuration = "sparkify_step_duration_seconds"
	RowsTotal    = "sparkify_rows_total"
	FilesTotal   = "sparkify_files_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs b. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one execution of step and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err)}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows written to table. Kinds other than plain
// writes, such as "unmatched" lookups or "failed" bulk rows, go in kind.
func RecordRows(job, table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{"job": job, "table": table, "kind": kind})
}

// RecordFile counts one processed input file of phase.
func RecordFile(job, phase string, err error) {
	backend.IncCounter(FilesTotal, 1, Labels{"job": job, "phase": phase, "status": status(err)})
}

// Tee fans every call out to all backends. Flush returns the joined errors.
func Tee(backends ...Backend) Backend { return tee(backends) }

type tee []Backend

func (t tee) IncCounter(name string, delta float64, labels Labels) {
	for _, b := range t {
		b.IncCounter(name, delta, labels)
	}
}

func (t tee) ObserveHistogram(name string, value float64, labels Labels) {
	for _, b := range t {
		b.ObserveHistogram(name, value, labels)
	}
}

func (t tee) Flush() error {
	var errs []error
	for _, b := range t {
		if err := b.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
