package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cavebatsofware/rate-limiter/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware,
// excluding the health and metrics endpoints from tracing.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" && r.URL.Path != "/metrics"
			}),
		))
	}
}

// SetupRoutes configures the HTTP routes for the admission controller.
// rateLimitMiddleware, when non-nil, is installed on the /api/v1 subrouter
// only — the health endpoint is never subject to admission control.
func SetupRoutes(handlers *Handlers, rateLimitMiddleware mux.MiddlewareFunc, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	if rateLimitMiddleware != nil {
		api.Use(rateLimitMiddleware)
	}
	api.HandleFunc("/login", handlers.LoginAttempt).Methods("POST")

	for _, opt := range opts {
		opt(router)
	}

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(models.NewErrorResponse("method not allowed", models.ErrorCodeInvalidRequest))
	})

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(models.NewErrorResponse("not found", models.ErrorCodeNotFound))
	})

	return router
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("http request", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers panics from downstream handlers.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered", "error", err, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(models.NewErrorResponse("internal server error", models.ErrorCodeInternalError))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
