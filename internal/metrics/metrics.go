package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the engine's Prometheus metrics. A nil *Registry is valid
// and records nothing.
type Registry struct {
	registry *prometheus.Registry

	// OperationDuration tracks wall time of each exported operation
	OperationDuration *prometheus.HistogramVec

	// Operations counts calls by outcome
	Operations *prometheus.CounterVec

	// SeriesProcessed counts dataset columns consumed by cross mapping
	SeriesProcessed prometheus.Counter
}

// NewRegistry creates a registry with all engine metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edm_operation_duration_seconds",
				Help:    "Duration of each EDM operation in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"operation", "result"},
		),

		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edm_operations_total",
				Help: "Total number of EDM operations by status",
			},
			[]string{"operation", "status"},
		),

		SeriesProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "edm_xmap_series_total",
				Help: "Total number of series cross mapped",
			},
		),
	}

	r.registry.MustRegister(r.OperationDuration, r.Operations, r.SeriesProcessed)
	return r
}

// Observe records one finished operation
func (r *Registry) Observe(operation string, started time.Time, err error) {
	if r == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	r.OperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
	r.Operations.WithLabelValues(operation, status).Inc()
}

// AddSeries counts cross-mapped series
func (r *Registry) AddSeries(n int) {
	if r == nil {
		return
	}
	r.SeriesProcessed.Add(float64(n))
}

// Gatherer exposes the underlying registry for tests and custom exporters
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the /metrics HTTP handler
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
