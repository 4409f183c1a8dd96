// Package metrics exposes relay counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay collectors. All methods are safe on a nil receiver (metrics disabled).
type Metrics struct {
	registry *prometheus.Registry

	readingsIngested *prometheus.CounterVec
	publishFailures  *prometheus.CounterVec
	busMessages      *prometheus.CounterVec
	classifyDuration prometheus.Histogram
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		readingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spl_readings_ingested_total",
			Help: "Readings persisted, by ingestion path.",
		}, []string{"source"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spl_bus_publish_failures_total",
			Help: "Failed MQTT publishes, by topic purpose.",
		}, []string{"purpose"}),
		busMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spl_bus_messages_total",
			Help: "Inbound MQTT messages, by topic purpose.",
		}, []string{"kind"}),
		classifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spl_classification_seconds",
			Help:    "Audio classification latency.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spl_device_cache_hits_total",
			Help: "Device cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spl_device_cache_misses_total",
			Help: "Device cache misses.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.readingsIngested,
		m.publishFailures,
		m.busMessages,
		m.classifyDuration,
		m.cacheHits,
		m.cacheMisses,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry for tests and custom collectors
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReadingIngested(source string) {
	if m == nil {
		return
	}
	m.readingsIngested.WithLabelValues(source).Inc()
}

func (m *Metrics) PublishFailed(purpose string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(purpose).Inc()
}

func (m *Metrics) BusMessage(kind string) {
	if m == nil {
		return
	}
	m.busMessages.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveClassification(d time.Duration) {
	if m == nil {
		return
	}
	m.classifyDuration.Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and latency under route
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
