// Package httptransport assembles the HTTP surface: shared middleware, the
// health and metrics endpoints, and every module's routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kakrote/udyam-registration-app/internal/platform/metrics"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/httputil"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/middleware/metadata"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/middleware/requesttime"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/middleware/version"
	"github.com/Kakrote/udyam-registration-app/pkg/requestcontext"
)

// Registrar is implemented by module handlers.
type Registrar interface {
	Register(r chi.Router)
}

// Config holds what the router needs besides module handlers.
type Config struct {
	Version string
	Logger  *slog.Logger
	// Metrics may be nil; /metrics is still served.
	Metrics *metrics.Metrics
}

// endpoints is advertised by the health check.
var endpoints = map[string]string{
	"GET /api/health":                        "Health check",
	"GET /api/form-schema":                   "Get form schema",
	"POST /api/submit":                       "Submit form data",
	"GET /api/pincode/{code}":                "Get location from pincode",
	"POST /api/registrations":                "Start a stepwise registration",
	"GET /api/registrations/{id}":            "Get a registration draft",
	"POST /api/registrations/{id}/identity":   "Submit identity details",
	"POST /api/registrations/{id}/enterprise": "Submit enterprise details",
	"POST /api/registrations/{id}/back":       "Return to identity details",
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// NewRouter wires middleware and mounts every registrar.
func NewRouter(cfg Config, modules ...Registrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(version.Middleware(cfg.Version))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(requestLogger(logger))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:    "OK",
			Message:   "Udyam Registration API is running",
			Timestamp: requestcontext.Now(r.Context()),
			Version:   cfg.Version,
			Endpoints: endpoints,
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, m := range modules {
		m.Register(r)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"message": "Route " + r.Method + " " + r.URL.Path + " not found",
		})
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request completed",
				"request_id", requestcontext.RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", requestcontext.ClientIP(r.Context()),
			)
		})
	}
}
