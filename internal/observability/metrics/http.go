package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	briefsSubmittedTotal *prometheus.CounterVec
	briefFetchTotal      *prometheus.CounterVec
	changeRequestsTotal  *prometheus.CounterVec
	feedbackEntriesTotal *prometheus.CounterVec
	ingestSkippedTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	briefsSubmittedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc",
			Subsystem: "briefs",
			Name:      "submitted_total",
			Help:      "Total brief generation requests accepted.",
		},
		[]string{"service"},
	)
	briefFetchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc",
			Subsystem: "briefs",
			Name:      "fetch_total",
			Help:      "Total brief retrievals by result (hit/miss).",
		},
		[]string{"service", "result"},
	)
	changeRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc",
			Subsystem: "briefs",
			Name:      "change_requests_total",
			Help:      "Total edit requests queued.",
		},
		[]string{"service"},
	)
	feedbackEntriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc",
			Subsystem: "feedback",
			Name:      "entries_total",
			Help:      "Total feedback entries recorded.",
		},
		[]string{"service"},
	)
	ingestSkippedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sc",
			Subsystem: "ingest",
			Name:      "skipped_sources_total",
			Help:      "Total unreadable sources skipped during ingestion.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		briefsSubmittedTotal,
		briefFetchTotal,
		changeRequestsTotal,
		feedbackEntriesTotal,
		ingestSkippedTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		briefsSubmittedTotal: briefsSubmittedTotal,
		briefFetchTotal:      briefFetchTotal,
		changeRequestsTotal:  changeRequestsTotal,
		feedbackEntriesTotal: feedbackEntriesTotal,
		ingestSkippedTotal:   ingestSkippedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Fingerprints are high-cardinality; collapse them before labeling.
func normalizePath(path string) string {
	switch {
	case strings.HasSuffix(path, "/request-changes"):
		return "/api/sentencia/{hash}/request-changes"
	case strings.HasPrefix(path, "/api/sentencia/"):
		return "/api/sentencia/{hash}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordBriefSubmitted(service string) {
	m.briefsSubmittedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordBriefFetch(service string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.briefFetchTotal.WithLabelValues(service, result).Inc()
}

func (m *HTTPServerMetrics) RecordChangeRequest(service string) {
	m.changeRequestsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordFeedbackEntry(service string) {
	m.feedbackEntriesTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordSkippedSources(service string, skipped int) {
	if skipped <= 0 {
		return
	}
	m.ingestSkippedTotal.WithLabelValues(service).Add(float64(skipped))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
