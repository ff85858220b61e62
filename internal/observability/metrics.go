// Package observability exposes the Prometheus registry and the HTTP metrics
// middleware.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	readingsIngested prometheus.Counter
	invoicesCreated  prometheus.Counter
	jobsTotal        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
}

// NewMetrics initialises the registry with the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbill_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridbill_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	readingsIngested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridbill_readings_ingested_total",
		Help: "Readings accepted through any ingestion path.",
	})
	invoicesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridbill_invoices_created_total",
		Help: "Invoices created.",
	})
	jobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbill_jobs_total",
		Help: "Background jobs by type and outcome.",
	}, []string{"type", "outcome"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridbill_job_duration_seconds",
		Help:    "Background job duration per type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	registry.MustRegister(requests, duration, readingsIngested, invoicesCreated, jobsTotal, jobDuration)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		readingsIngested: readingsIngested,
		invoicesCreated:  invoicesCreated,
		jobsTotal:        jobsTotal,
		jobDuration:      jobDuration,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// AddReadingsIngested counts n accepted readings.
func (m *Metrics) AddReadingsIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.readingsIngested.Add(float64(n))
}

// IncInvoicesCreated counts one created invoice.
func (m *Metrics) IncInvoicesCreated() {
	if m == nil {
		return
	}
	m.invoicesCreated.Inc()
}

// ObserveJob records one background job run.
func (m *Metrics) ObserveJob(jobType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(jobType, outcome).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(elapsed.Seconds())
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
