// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from mirror runs.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - It mirrors the store registry pattern: the rest of the codebase depends
//     only on this interface while concrete metric systems stay isolated in
//     subpackages.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
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

// RecordTable records one finished table job: its terminal status and how
// long the end-to-end extraction took.
//
// Typical statuses mirror the outcome report, e.g.:
//   - "completed"
//   - "truncated"
//   - "failed"
//   - "skipped"
func RecordTable(source, status string, d time.Duration) {
	lbls := Labels{
		"source": source,
		"status": status,
	}
	backend.IncCounter("mirror_tables_total", 1, lbls)
	backend.ObserveHistogram("mirror_table_duration_seconds", d.Seconds(), lbls)
}

// RecordBatch counts one flushed batch and the rows it landed.
func RecordBatch(source string, rows int64) {
	if rows < 0 {
		return
	}
	lbls := Labels{"source": source}
	backend.IncCounter("mirror_batches_total", 1, lbls)
	backend.IncCounter("mirror_rows_total", float64(rows), lbls)
}
