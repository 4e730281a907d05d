// Package metrics holds the Prometheus collectors of the converter.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flightlog"

// Metrics groups the converter's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	conversions        *prometheus.CounterVec   // by status: complete, error
	conversionDuration prometheus.Histogram     // seconds per conversion
	cacheLookups       *prometheus.CounterVec   // by result: hit, miss
	classifications    *prometheus.CounterVec   // by code and endpoint
	tables             prometheus.Histogram     // tables per converted log
	warnings           *prometheus.CounterVec   // by stage
	requestDuration    *prometheus.HistogramVec // by route
}

// New creates the collectors and registers them on a fresh registry, so
// several instances can coexist in tests.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "converter",
			Name:      "conversions_total",
			Help:      "Total number of log conversions by final status",
		}, []string{"status"}),

		conversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "converter",
			Name:      "conversion_duration_seconds",
			Help:      "Log conversion duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by result",
		}, []string{"result"}),

		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plot",
			Name:      "classifications_total",
			Help:      "Total number of resolved plot requests by classification code",
		}, []string{"code", "kind"}),

		tables: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "converter",
			Name:      "tables_per_log",
			Help:      "Number of message tables materialized per log",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),

		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "converter",
			Name:      "warnings_total",
			Help:      "Total number of non-fatal conversion findings by stage",
		}, []string{"stage"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.conversions,
		m.conversionDuration,
		m.cacheLookups,
		m.classifications,
		m.tables,
		m.warnings,
		m.requestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ConversionFinished records the outcome of one conversion.
func (m *Metrics) ConversionFinished(status string, seconds float64, tables int) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(status).Inc()
	m.conversionDuration.Observe(seconds)
	if tables > 0 {
		m.tables.Observe(float64(tables))
	}
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Classified records the classification code of a plot request. kind is
// "plot", "dual" or "catalog".
func (m *Metrics) Classified(code int, kind string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(strconv.Itoa(code), kind).Inc()
}

// Warnings adds n non-fatal findings for a pipeline stage.
func (m *Metrics) Warnings(stage string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.warnings.WithLabelValues(stage).Add(float64(n))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
