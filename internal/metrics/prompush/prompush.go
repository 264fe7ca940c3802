// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the mirror labels (source, status) onto Prometheus labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead of
//     exposing an HTTP scrape endpoint, since a mirror run is a batch process
//     with nothing left to scrape once it exits.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus and can swap
// to alternative backends (e.g. Datadog, StatsD) without changes to the core
// mirroring logic.
package prompush

import (
	"fmt"

	"warehousetogo/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	// Table-level metrics
	tableCounter  *prometheus.CounterVec // "mirror_tables_total"
	tableDuration *prometheus.SummaryVec // "mirror_table_duration_seconds"

	// Batch-level metrics
	rowCounter   *prometheus.CounterVec // "mirror_rows_total"
	batchCounter *prometheus.CounterVec // "mirror_batches_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (often the profile name).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "warehousetogo"
	}

	reg := prometheus.NewRegistry()

	tableCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_tables_total",
			Help: "Total number of finished table jobs, partitioned by source and terminal status.",
		},
		[]string{"source", "status"},
	)
	tableDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "mirror_table_duration_seconds",
			Help:       "End-to-end duration of table jobs in seconds, partitioned by source and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"source", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_rows_total",
			Help: "Total rows landed in the local store, partitioned by source.",
		},
		[]string{"source"},
	)
	batchCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_batches_total",
			Help: "Total batches flushed to the local store, partitioned by source.",
		},
		[]string{"source"},
	)

	if err := reg.Register(tableCounter); err != nil {
		return nil, fmt.Errorf("prompush: register table counter: %w", err)
	}
	if err := reg.Register(tableDuration); err != nil {
		return nil, fmt.Errorf("prompush: register table summary: %w", err)
	}
	if err := reg.Register(rowCounter); err != nil {
		return nil, fmt.Errorf("prompush: register row counter: %w", err)
	}
	if err := reg.Register(batchCounter); err != nil {
		return nil, fmt.Errorf("prompush: register batch counter: %w", err)
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		tableCounter:  tableCounter,
		tableDuration: tableDuration,
		rowCounter:    rowCounter,
		batchCounter:  batchCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "mirror_tables_total":
		if b.tableCounter == nil {
			return
		}
		b.tableCounter.WithLabelValues(labels["source"], labels["status"]).Add(delta)

	case "mirror_rows_total":
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["source"]).Add(delta)

	case "mirror_batches_total":
		if b.batchCounter == nil {
			return
		}
		b.batchCounter.WithLabelValues(labels["source"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "mirror_table_duration_seconds" || b.tableDuration == nil {
		return
	}
	b.tableDuration.WithLabelValues(labels["source"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
