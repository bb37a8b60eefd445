// Package metrics provides Prometheus-based metrics collection for netwarden.
// All collectors live on a private registry so tests can create isolated
// instances without collisions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netwarden"

// Metrics holds all Prometheus metric collectors.
type Metrics struct {
	scansTotal     *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	devicesFound   prometheus.Gauge
	healthScore    prometheus.Gauge
	progressEvents prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	wsClients    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a metrics instance with all collectors registered on a fresh
// registry, including the standard Go runtime collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "total",
			Help:      "Total number of scan sessions by terminal status",
		}, []string{"status"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of scan sessions in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		devicesFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "devices_found",
			Help:      "Number of devices in the current device set",
		}),
		healthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "health_score",
			Help:      "Aggregate health score derived from the current device set",
		}),
		progressEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "progress_events_total",
			Help:      "Total number of progress events applied to session state",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path and status code",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "websocket_clients",
			Help:      "Number of connected WebSocket clients",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.devicesFound,
		m.healthScore,
		m.progressEvents,
		m.httpRequests,
		m.httpDuration,
		m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveScan records one completed scan session. All metric methods are
// nil-safe so callers can run without metrics wired.
func (m *Metrics) ObserveScan(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.scansTotal.WithLabelValues(status).Inc()
	m.scanDuration.Observe(duration.Seconds())
}

// SetDeviceSet records the size and derived health score of the current
// device set.
func (m *Metrics) SetDeviceSet(count, score int) {
	if m == nil {
		return
	}
	m.devicesFound.Set(float64(count))
	m.healthScore.Set(float64(score))
}

// IncProgressEvents counts a progress event applied to session state.
func (m *Metrics) IncProgressEvents() {
	if m == nil {
		return
	}
	m.progressEvents.Inc()
}

// ObserveHTTPRequest records one handled HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// AddWSClients adjusts the connected WebSocket client gauge.
func (m *Metrics) AddWSClients(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}

// Handler returns an HTTP handler exposing the registry in Prometheus text
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
