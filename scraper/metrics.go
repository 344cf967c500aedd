package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for document retrieval.
type Metrics struct {
	Registry              *prometheus.Registry
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       prometheus.Histogram
	RetriesTotal          prometheus.Counter
	ErrorsTotal           *prometheus.CounterVec
	RenderFallbacksTotal  prometheus.Counter
	CoursesExtractedTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updater_fetch_requests_total",
			Help: "Total HTTP requests issued for the source document.",
		},
		[]string{"mode"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "updater_fetch_request_duration_seconds",
			Help:    "HTTP request latency for source document requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "updater_fetch_retries_total",
			Help: "Total number of retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updater_fetch_errors_total",
			Help: "Total number of retrieval errors by type.",
		},
		[]string{"error_type"},
	)
	renders := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "updater_render_fallbacks_total",
			Help: "Times the rendered-page fallback was used.",
		},
	)
	courses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "updater_courses_extracted_total",
			Help: "Total number of courses extracted from source documents.",
		},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, renders, courses)

	return &Metrics{
		Registry:              registry,
		RequestsTotal:         requests,
		RequestDuration:       requestDuration,
		RetriesTotal:          retries,
		ErrorsTotal:           errorsTotal,
		RenderFallbacksTotal:  renders,
		CoursesExtractedTotal: courses,
	}
}

// IncRequest increments the requests counter for a fetch mode (plain or rendered).
func (m *Metrics) IncRequest(mode string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(mode).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncRenderFallback counts a switch to the rendered page.
func (m *Metrics) IncRenderFallback() {
	if m == nil {
		return
	}
	m.RenderFallbacksTotal.Inc()
}

// AddCourses counts extracted courses.
func (m *Metrics) AddCourses(n int) {
	if m == nil {
		return
	}
	m.CoursesExtractedTotal.Add(float64(n))
}
