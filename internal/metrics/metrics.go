// Package metrics exposes Prometheus collectors for the HTTP API, the analysis pipeline
// and the generative model calls behind it.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "doc_review"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	downloadsTotal   *prometheus.CounterVec
	extractionsTotal *prometheus.CounterVec
	fallbackSections prometheus.Counter

	modelCallsTotal   *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
}

// New creates the collectors for service and registers them.
func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		service:  service,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"service", "method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "http",
				Name:        "in_flight_requests",
				Help:        "Number of in-flight HTTP requests.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
		analysisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "runs_total",
				Help:      "Total cross-document analyses by outcome.",
			},
			[]string{"service", "outcome"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Cross-document analysis duration in seconds by outcome.",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 240},
			},
			[]string{"service", "outcome"},
		),
		downloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "downloads_total",
				Help:      "Total document downloads by status.",
			},
			[]string{"service", "status"},
		),
		extractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "extractions_total",
				Help:      "Total per-document field extractions by outcome.",
			},
			[]string{"service", "outcome"},
		),
		fallbackSections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "analysis",
				Name:        "fallback_sections_total",
				Help:        "Documents that received placeholder feedback because the review had no section for them.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
		modelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "calls_total",
				Help:      "Total generative model calls by operation, model and status.",
			},
			[]string{"service", "operation", "model", "status"},
		),
		modelCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "call_duration_seconds",
				Help:      "Generative model call duration in seconds.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"service", "operation", "model"},
		),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.analysisTotal,
		m.analysisDuration,
		m.downloadsTotal,
		m.extractionsTotal,
		m.fallbackSections,
		m.modelCallsTotal,
		m.modelCallDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times every request passing through next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
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

		m.requestTotal.WithLabelValues(m.service, r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/document-comparison/rules/"):
		return "/document-comparison/rules/{id}"
	case strings.HasPrefix(path, "/document-comparison/history/"):
		return "/document-comparison/history/{id}"
	default:
		return path
	}
}

// ObserveAnalysis records a finished analysis.
func (m *Metrics) ObserveAnalysis(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.analysisTotal.WithLabelValues(m.service, outcome).Inc()
	m.analysisDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

// ObserveDownload records one document download.
func (m *Metrics) ObserveDownload(ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	m.downloadsTotal.WithLabelValues(m.service, status).Inc()
}

// ObserveExtraction records one per-document extraction.
func (m *Metrics) ObserveExtraction(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.extractionsTotal.WithLabelValues(m.service, outcome).Inc()
}

// ObserveFallbackSections adds n placeholder sections.
func (m *Metrics) ObserveFallbackSections(n int) {
	if n <= 0 {
		return
	}
	m.fallbackSections.Add(float64(n))
}

// ObserveModelCall records one generative model call.
func (m *Metrics) ObserveModelCall(operation, model string, duration time.Duration, err error) {
	if model == "" {
		model = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.modelCallsTotal.WithLabelValues(m.service, operation, model, status).Inc()
	m.modelCallDuration.WithLabelValues(m.service, operation, model).Observe(duration.Seconds())
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

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
