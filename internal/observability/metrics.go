package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	syncPasses       *prometheus.CounterVec
	syncFailures     prometheus.Counter
	listenerFailures *prometheus.CounterVec
	collectionWrites *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salescrm_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salescrm_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salescrm_http_errors_total",
			Help: "HTTP error responses by error code.",
		}, []string{"path", "method", "code"}),
		syncPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salescrm_sync_passes_total",
			Help: "Full re-read and broadcast passes by trigger.",
		}, []string{"trigger"}),
		syncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salescrm_sync_failures_total",
			Help: "Sync passes aborted by a record store read failure.",
		}),
		listenerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salescrm_sync_listener_failures_total",
			Help: "Listener callbacks that returned an error or panicked.",
		}, []string{"category"}),
		collectionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salescrm_collection_writes_total",
			Help: "Full-collection writes through the sync manager.",
		}, []string{"category"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.requests,
		m.requestDuration,
		m.errors,
		m.syncPasses,
		m.syncFailures,
		m.listenerFailures,
		m.collectionWrites,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordSyncPass counts a completed broadcast pass.
func (m *Metrics) RecordSyncPass(trigger string) {
	if m == nil {
		return
	}
	m.syncPasses.WithLabelValues(trigger).Inc()
}

// RecordSyncFailure counts a pass aborted by a read failure.
func (m *Metrics) RecordSyncFailure() {
	if m == nil {
		return
	}
	m.syncFailures.Inc()
}

// RecordListenerFailure counts a failed listener callback.
func (m *Metrics) RecordListenerFailure(category string) {
	if m == nil {
		return
	}
	m.listenerFailures.WithLabelValues(category).Inc()
}

// RecordCollectionWrite counts a persisted collection.
func (m *Metrics) RecordCollectionWrite(category string) {
	if m == nil {
		return
	}
	m.collectionWrites.WithLabelValues(category).Inc()
}
