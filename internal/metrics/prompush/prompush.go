// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// The pipeline is a short-lived batch job, so metrics are collected into a
// private registry and pushed to a Pushgateway on Flush instead of being
// exposed on a scrape endpoint. The job label doubles as the Pushgateway
// grouping key.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"fareetl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // fareetl_stage_total
	stageDuration *prometheus.SummaryVec // fareetl_stage_duration_seconds

	rowCounter         *prometheus.CounterVec // fareetl_rows_total
	supplierRowCounter *prometheus.CounterVec // fareetl_supplier_rows_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (often same as pipeline job).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "fareetl"
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StageTotal,
			Help: "Pipeline stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StageDurationSeconds,
			Help:       "Duration of pipeline stages in seconds, partitioned by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Row counts per kind (unified, no_tax_dropped, inserted, ...).",
		},
		[]string{"kind"},
	)
	supplierRowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.SupplierRowsTotal,
			Help: "Row counts per supplier and kind (extracted, invalid_dropped, cleaned, matched).",
		},
		[]string{"supplier", "kind"},
	)

	for name, c := range map[string]prometheus.Collector{
		"stage counter":        stageCounter,
		"stage summary":        stageDuration,
		"row counter":          rowCounter,
		"supplier row counter": supplierRowCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:         gatewayURL,
		jobName:            jobName,
		reg:                reg,
		stageCounter:       stageCounter,
		stageDuration:      stageDuration,
		rowCounter:         rowCounter,
		supplierRowCounter: supplierRowCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StageTotal:
		if b.stageCounter == nil {
			return
		}
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.SupplierRowsTotal:
		if b.supplierRowCounter == nil {
			return
		}
		b.supplierRowCounter.WithLabelValues(labels["supplier"], labels["kind"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StageDurationSeconds || b.stageDuration == nil {
		return
	}
	b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
