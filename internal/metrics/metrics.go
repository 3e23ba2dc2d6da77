// Package metrics holds the Prometheus collectors for extraction, storage and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extraction strategies used as label values.
const (
	StrategyHeuristic = "heuristic"
	StrategyModel     = "model"
)

// Metrics holds Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - actionnotes_extractions_total{strategy} - extraction calls
//   - actionnotes_extracted_items_total{strategy} - items returned by extraction
//   - actionnotes_model_failures_total - model calls degraded to an empty result
//   - actionnotes_storage_errors_total{op} - failed storage operations
//   - actionnotes_http_request_duration_seconds{method,path,status} - HTTP latency
type Metrics struct {
	registry *prometheus.Registry

	ExtractionsTotal    *prometheus.CounterVec
	ExtractedItemsTotal *prometheus.CounterVec
	ModelFailuresTotal  prometheus.Counter
	StorageErrorsTotal  *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the metrics on a fresh registry that also carries the Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actionnotes_extractions_total",
				Help: "Total number of extraction calls",
			},
			[]string{"strategy"},
		),
		ExtractedItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actionnotes_extracted_items_total",
				Help: "Total number of action items returned by extraction",
			},
			[]string{"strategy"},
		),
		ModelFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "actionnotes_model_failures_total",
				Help: "Total number of model extractions that failed and returned no items",
			},
		),
		StorageErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actionnotes_storage_errors_total",
				Help: "Total number of failed storage operations",
			},
			[]string{"op"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "actionnotes_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path", "status"},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordExtraction records one extraction call and the number of items it returned.
func (m *Metrics) RecordExtraction(strategy string, items int) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(strategy).Inc()
	m.ExtractedItemsTotal.WithLabelValues(strategy).Add(float64(items))
}

// RecordModelFailure records a model call that degraded to an empty result.
func (m *Metrics) RecordModelFailure() {
	if m == nil {
		return
	}
	m.ModelFailuresTotal.Inc()
}

// RecordStorageError records a failed storage operation.
func (m *Metrics) RecordStorageError(op string) {
	if m == nil {
		return
	}
	m.StorageErrorsTotal.WithLabelValues(op).Inc()
}

// RecordHTTPRequest records the duration of a served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
