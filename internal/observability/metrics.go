package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	uploads     *prometheus.CounterVec
	uploadBatch prometheus.Histogram
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP requests that ended in a domain error, by code.",
		}, []string{"method", "path", "code"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_attachment_uploads_total",
			Help: "Attachment uploads to the attachment store, by result.",
		}, []string{"result"}),
		uploadBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticket_attachment_upload_batch_seconds",
			Help:    "Wall time of a whole attachment batch upload.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.errors, m.uploads, m.uploadBatch)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordUploads counts n attachment uploads with the given result ("success" or "failure").
func (m *Metrics) RecordUploads(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.uploads.WithLabelValues(result).Add(float64(n))
}

// ObserveUploadBatch records the duration of one batch.
func (m *Metrics) ObserveUploadBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.uploadBatch.Observe(d.Seconds())
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
