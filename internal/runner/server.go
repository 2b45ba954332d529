package runner

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kallahq/kalla/internal/adapter/httpserver"
	"github.com/kallahq/kalla/internal/adapter/observability"
	"github.com/kallahq/kalla/internal/config"
	"github.com/kallahq/kalla/internal/model"
)

// NewRouter builds the job runner's HTTP surface: POST /api/jobs (stage 0
// intake), /health, /ready, /metrics.
func NewRouter(cfg config.Config, d *Dispatcher) http.Handler {
	r := chi.NewRouter()

	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowOrigins},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		wr.Post("/api/jobs", submitJobHandler(d))
	})

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(d))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func submitJobHandler(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.JobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpserver.WriteErrorExported(w, r, model.ErrInvalidArgument, err.Error())
			return
		}
		if !d.Submit(&req) {
			httpserver.WriteErrorExported(w, r, model.ErrQueueFull, "job queue is full")
			return
		}

		httpserver.WriteJSONExported(w, http.StatusAccepted, map[string]string{"run_id": req.RunID, "status": string(StatusQueued)})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler reports queue headroom and the most recently selected engine
// mode, mirroring the teacher's multi-dependency Readiness() usecase shape.
// A full bounded channel is reported as 503, per §4.4 Stage 0/§6's
// "channel full -> readiness endpoint returns 503".
func readyHandler(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		code := http.StatusOK
		if d.QueueDepth() >= d.QueueCapacity() {
			status = "queue_full"
			code = http.StatusServiceUnavailable
		}
		httpserver.WriteJSONExported(w, code, map[string]any{
			"status":           status,
			"queue_depth":      d.QueueDepth(),
			"queue_capacity":   d.QueueCapacity(),
			"last_engine_mode": d.LastEngineMode(),
		})
	}
}
