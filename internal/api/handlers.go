// Package api exposes the admission controller's HTTP surface: a health
// endpoint and a demo endpoint that exercises the ActionChecker capability
// the core engine carries but never consults on its own admission path.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cavebatsofware/rate-limiter/internal/actioncheck"
	"github.com/cavebatsofware/rate-limiter/internal/models"
	"github.com/cavebatsofware/rate-limiter/internal/ratelimit"
)

// Handlers holds the dependencies HTTP handlers need.
type Handlers struct {
	actionChecker actioncheck.Checker
	startedAt     time.Time
}

// NewHandlers creates a Handlers instance. actionChecker may be nil; demo
// handlers that need it report it unavailable rather than panicking.
func NewHandlers(actionChecker actioncheck.Checker) *Handlers {
	return &Handlers{
		actionChecker: actionChecker,
		startedAt:     time.Now(),
	}
}

// HealthCheck reports service status.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Uptime = time.Since(h.startedAt).String()
	response.AddComponent("admission_engine", models.StatusHealthy, "accepting requests")

	if h.actionChecker != nil {
		response.AddComponent("action_checker", models.StatusHealthy, "backend reachable")
	} else {
		response.AddComponent("action_checker", models.StatusDegraded, "no backend configured")
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// LoginAttempt demonstrates application-level use of the ActionChecker
// capability layered on top of the token bucket: a login_failed action
// recorded within the last minute from the same IP is enough to reject the
// next attempt outright, independent of the bucket's own admission
// decision. The underlying bucket has already admitted this request by
// the time this handler runs.
// POST /api/v1/login
func (h *Handlers) LoginAttempt(w http.ResponseWriter, r *http.Request) {
	if h.actionChecker == nil {
		h.writeErrorResponse(w, http.StatusServiceUnavailable, models.ErrorCodeServiceUnavailable, "action checker not configured")
		return
	}

	sc, ok := ratelimit.GetSecurityContext(r)
	if !ok {
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "missing security context")
		return
	}

	const action = "login_failed"
	const window = time.Minute

	recent, err := h.actionChecker.CheckRecentAction(r.Context(), sc.IPAddress, action, window)
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, err.Error())
		return
	}
	if recent {
		h.writeErrorResponse(w, http.StatusForbidden, models.ErrorCodeForbidden, "too many recent login failures")
		return
	}

	if err := h.actionChecker.RecordAction(r.Context(), sc.IPAddress, action); err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, err.Error())
		return
	}

	h.writeJSONResponse(w, http.StatusUnauthorized, models.NewErrorResponse("invalid credentials", models.ErrorCodeBadRequest))
}

func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, code))
}
