// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Validation runs are short-lived batch jobs, so metrics are pushed to a
// Pushgateway at the end of the run rather than exposed on a scrape
// endpoint. All Prometheus-specific dependencies live here so the rest of
// the project stays decoupled from the metric system.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"tablecheck/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	runCounter  *prometheus.CounterVec // "tablecheck_runs_total"
	runDuration *prometheus.SummaryVec // "tablecheck_run_duration_seconds"
	rowCounter  *prometheus.CounterVec // "tablecheck_rows_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName is the Pushgateway "job" grouping; gatewayURL its base URL.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "tablecheck"
	}

	reg := prometheus.NewRegistry()

	runCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablecheck_runs_total",
			Help: "Total number of validation runs, partitioned by status.",
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "tablecheck_run_duration_seconds",
			Help:       "Duration of validation runs in seconds, partitioned by status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablecheck_rows_total",
			Help: "Row-level counts per kind (processed, parse_errors, type_mismatch, etc.).",
		},
		[]string{"kind"},
	)

	reg.MustRegister(runCounter, runDuration, rowCounter)

	return &Backend{
		gatewayURL:  gatewayURL,
		jobName:     jobName,
		reg:         reg,
		runCounter:  runCounter,
		runDuration: runDuration,
		rowCounter:  rowCounter,
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "tablecheck_runs_total":
		b.runCounter.WithLabelValues(labels["status"]).Add(delta)
	case "tablecheck_rows_total":
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	default:
		// Unknown metric names are dropped rather than registered ad hoc;
		// the collector set is fixed at construction.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case "tablecheck_run_duration_seconds":
		b.runDuration.WithLabelValues(labels["status"]).Observe(value)
	}
}

// Flush pushes all collected metrics to the Pushgateway.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
