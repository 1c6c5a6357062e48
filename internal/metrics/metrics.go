// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the fare pipeline.
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems (Prometheus Pushgateway, DogStatsD) live in
//     subpackages.
//
// The pipeline records one stage observation per stage (extract, transform,
// unify, dedupe, load) plus row counts per stage and per supplier.
package metrics

import "time"

// Metric names.
const (
	StageTotal           = "fareetl_stage_total"
	StageDurationSeconds = "fareetl_stage_duration_seconds"
	RowsTotal            = "fareetl_rows_total"
	SupplierRowsTotal    = "fareetl_supplier_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
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

// RecordStage measures latency and success/failure of one pipeline stage.
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter(StageTotal, 1, lbls)
	backend.ObserveHistogram(StageDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments the row counter for kind, e.g.:
//   - "unified"
//   - "no_tax_dropped"
//   - "duplicates_dropped"
//   - "gds_filtered"
//   - "inserted"
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordSupplierRows increments a per-supplier row counter. Kinds are
// "extracted", "invalid_dropped", "cleaned", and "matched".
func RecordSupplierRows(job, supplier, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(SupplierRowsTotal, float64(delta), Labels{
		"job":      job,
		"supplier": supplier,
		"kind":     kind,
	})
}
