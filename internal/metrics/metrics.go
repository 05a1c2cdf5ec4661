// Package metrics provides observability for the registry: one Metrics
// struct grouping every counter, gauge, and histogram, built with
// promauto so registration happens at construction time.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every counter, gauge, and histogram the registry exposes.
type Metrics struct {
	// Registry holds every collector below.
	Registry *prometheus.Registry

	// HTTP requests by route and status.
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Bytes streamed to clients as tarball responses.
	TarballBytesTotal prometheus.Counter

	// Scan lifecycle.
	ScanDuration        prometheus.Histogram
	ScanPackagesTotal   prometheus.Gauge
	ScanFailuresTotal   *prometheus.CounterVec
	CircuitBreakerState prometheus.Gauge
}

// New constructs every metric and registers it against a fresh registry
// owned by the returned Metrics, so New can be called more than once.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pachka_http_requests_total",
			Help: "Total HTTP requests handled, by route and status code",
		}, []string{"route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pachka_http_request_duration_seconds",
			Help:    "HTTP request handling latency by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),

		TarballBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pachka_tarball_bytes_streamed_total",
			Help: "Total bytes of tarball payload streamed to clients",
		}),

		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pachka_scan_duration_seconds",
			Help:    "Duration of a full packages-directory scan",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		ScanPackagesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pachka_scan_packages",
			Help: "Number of distinct package ids in the most recent catalog snapshot",
		}),

		ScanFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pachka_scan_ingestion_failures_total",
			Help: "Total tarballs rejected during ingestion, by reason",
		}, []string{"reason"}),

		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pachka_ingest_circuit_breaker_open",
			Help: "1 when the ingestion circuit breaker is open, 0 otherwise",
		}),
	}
}

func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) AddTarballBytes(n int64) {
	if m == nil {
		return
	}
	m.TarballBytesTotal.Add(float64(n))
}

func (m *Metrics) ObserveScan(d time.Duration, packages int) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(d.Seconds())
	m.ScanPackagesTotal.Set(float64(packages))
}

func (m *Metrics) IncrementScanFailure(reason string) {
	if m == nil {
		return
	}
	m.ScanFailuresTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetCircuitBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
		return
	}
	m.CircuitBreakerState.Set(0)
}
