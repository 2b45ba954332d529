// Package observability provides logging, metrics, and tracing.
//
// It integrates with OpenTelemetry for distributed tracing and Prometheus
// for metrics collection across the job runner's lifecycle.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts HTTP requests by route, method, and status label.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration records request durations by route and method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// ActiveJobs is a gauge of jobs currently executing (post permit-acquisition).
	ActiveJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_jobs",
			Help: "Number of jobs currently executing",
		},
	)
	// QueuedJobs is a gauge of jobs drained from the intake channel but not
	// yet holding a concurrency permit.
	QueuedJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "queued_jobs",
			Help: "Number of jobs waiting for a concurrency permit",
		},
	)
	// JobsCompletedTotal counts jobs that reached a successful completion callback.
	JobsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of jobs completed",
		},
	)
	// JobsFailedTotal counts jobs that ended in an error callback.
	JobsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Total number of jobs failed",
		},
	)
	// EngineFallbackTotal counts cluster-probe failures that triggered a
	// local-engine fallback (§4.4 Stage 2).
	EngineFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_fallback_total",
			Help: "Total number of cluster-probe fallbacks to the local engine",
		},
		[]string{"reason"},
	)
	// CallbackRetriesTotal counts failed callback deliveries by kind: every
	// failed best-effort progress/error POST, and every failed completion
	// attempt after the first.
	CallbackRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_retries_total",
			Help: "Total number of failed callback deliveries (best-effort failures and failed completion retries)",
		},
		[]string{"kind"},
	)
)

// InitMetrics registers all Prometheus metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ActiveJobs)
	prometheus.MustRegister(QueuedJobs)
	prometheus.MustRegister(JobsCompletedTotal)
	prometheus.MustRegister(JobsFailedTotal)
	prometheus.MustRegister(EngineFallbackTotal)
	prometheus.MustRegister(CallbackRetriesTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// DrainJob records a job leaving the intake channel and entering the queued state.
func DrainJob() { QueuedJobs.Inc() }

// AcquirePermit records a queued job acquiring a concurrency permit.
func AcquirePermit() {
	QueuedJobs.Dec()
	ActiveJobs.Inc()
}

// CompleteJob records a job finishing successfully.
func CompleteJob() {
	ActiveJobs.Dec()
	JobsCompletedTotal.Inc()
}

// FailJob records a job finishing with an error callback.
func FailJob() {
	ActiveJobs.Dec()
	JobsFailedTotal.Inc()
}

// RecordEngineFallback records a cluster-probe fallback to the local engine.
func RecordEngineFallback(reason string) {
	EngineFallbackTotal.WithLabelValues(reason).Inc()
}

// RecordCallbackRetry records a failed callback delivery of the given kind.
func RecordCallbackRetry(kind string) {
	CallbackRetriesTotal.WithLabelValues(kind).Inc()
}
