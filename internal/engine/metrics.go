package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric label values.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultUpToDate  = "up_to_date"

	KindProcess   = "process"
	KindWriteFile = "writefile"
)

// Metrics holds the Prometheus metrics for operation execution. Each
// instance owns a private registry.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance with all scheduler metrics registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opgraph_operations_total",
				Help: "Total number of operations scheduled by result",
			},
			[]string{"result"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opgraph_operation_duration_seconds",
				Help:    "Operation execution time in seconds by command kind",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"kind"},
		),

		registry: registry,
	}

	registry.MustRegister(m.operationsTotal, m.operationDuration)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOperation counts one scheduled operation. Durations are observed
// only for operations that actually ran.
func (m *Metrics) RecordOperation(kind, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(result).Inc()
	if result != ResultUpToDate {
		m.operationDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// WriteTextfile writes the current metrics in the node-exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
