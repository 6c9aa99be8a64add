// Package metrics exposes Prometheus instruments for parsing, the document
// cache, exports, storage and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all efile metrics. A nil *Registry is valid and records
// nothing, so libraries and tests can run without one.
type Registry struct {
	reg *prometheus.Registry

	// Parsing
	ParsesTotal   *prometheus.CounterVec
	ParseDuration prometheus.Histogram
	ParseBytes    prometheus.Histogram
	TablesParsed  prometheus.Counter
	RowsParsed    prometheus.Counter
	Anomalies     *prometheus.CounterVec
	ParsesActive  prometheus.Gauge

	// Documents
	DocumentsCached prometheus.Gauge
	Exports         *prometheus.CounterVec
	StoreOps        *prometheus.CounterVec

	// HTTP
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
}

// New creates a Registry with its own prometheus registry, including the Go
// runtime and process collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	r := &Registry{reg: reg}

	r.ParsesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "efile_parses_total",
		Help: "Documents parsed, by result",
	}, []string{"result"})

	r.ParseDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "efile_parse_duration_seconds",
		Help:    "Time spent parsing one document",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	r.ParseBytes = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "efile_parse_bytes",
		Help:    "Size of parsed documents",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})

	r.TablesParsed = factory.NewCounter(prometheus.CounterOpts{
		Name: "efile_tables_parsed_total",
		Help: "Tables produced by successful parses",
	})

	r.RowsParsed = factory.NewCounter(prometheus.CounterOpts{
		Name: "efile_rows_parsed_total",
		Help: "Data rows produced by successful parses",
	})

	r.Anomalies = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "efile_anomalies_total",
		Help: "Non-fatal irregularities found while parsing, by kind",
	}, []string{"kind"})

	r.ParsesActive = factory.NewGauge(prometheus.GaugeOpts{
		Name: "efile_parses_active",
		Help: "Parses currently holding a limiter slot",
	})

	r.DocumentsCached = factory.NewGauge(prometheus.GaugeOpts{
		Name: "efile_documents_cached",
		Help: "Parsed documents held in memory",
	})

	r.Exports = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "efile_exports_total",
		Help: "Exports written, by format",
	}, []string{"format"})

	r.StoreOps = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "efile_store_operations_total",
		Help: "Document store operations, by operation and result",
	}, []string{"op", "result"})

	r.APIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "efile_http_requests_total",
		Help: "HTTP requests, by method, route pattern and status",
	}, []string{"method", "route", "status"})

	r.APILatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "efile_http_request_duration_seconds",
		Help:    "HTTP request latency, by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer returns the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// ObserveParse records one parse attempt.
func (r *Registry) ObserveParse(ok bool, size int64, elapsed time.Duration, tables, rows int) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.ParsesTotal.WithLabelValues(result).Inc()
	r.ParseDuration.Observe(elapsed.Seconds())
	if size >= 0 {
		r.ParseBytes.Observe(float64(size))
	}
	if ok {
		r.TablesParsed.Add(float64(tables))
		r.RowsParsed.Add(float64(rows))
	}
}

// ObserveAnomaly counts one anomaly of kind.
func (r *Registry) ObserveAnomaly(kind string) {
	if r == nil {
		return
	}
	r.Anomalies.WithLabelValues(kind).Inc()
}

// SetParsesActive records the number of parses in flight.
func (r *Registry) SetParsesActive(n int) {
	if r == nil {
		return
	}
	r.ParsesActive.Set(float64(n))
}

// SetDocumentsCached records the document cache size.
func (r *Registry) SetDocumentsCached(n int) {
	if r == nil {
		return
	}
	r.DocumentsCached.Set(float64(n))
}

// ObserveExport counts one export in format.
func (r *Registry) ObserveExport(format string) {
	if r == nil {
		return
	}
	r.Exports.WithLabelValues(format).Inc()
}

// ObserveStore counts one store operation.
func (r *Registry) ObserveStore(op string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.StoreOps.WithLabelValues(op, result).Inc()
}

// ObserveRequest records one HTTP request. route is the chi route pattern,
// not the raw path, to keep label cardinality bounded.
func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.APIRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	r.APILatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
