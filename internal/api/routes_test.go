package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestSetupRoutes_Health(t *testing.T) {
	h := NewHandlers(nil)
	router := SetupRoutes(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRoutes_NotFound(t *testing.T) {
	h := NewHandlers(nil)
	router := SetupRoutes(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetupRoutes_MethodNotAllowed(t *testing.T) {
	h := NewHandlers(nil)
	router := SetupRoutes(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSetupRoutes_RateLimitMiddlewareAppliedToAPIOnly(t *testing.T) {
	h := NewHandlers(nil)

	var calledFor []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calledFor = append(calledFor, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	router := SetupRoutes(h, mux.MiddlewareFunc(mw))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotContains(t, calledFor, "/health")

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
	router.ServeHTTP(httptest.NewRecorder(), req2)
	assert.Contains(t, calledFor, "/api/v1/login")
}
