package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcastillo-dev/terralote-backend/pkg/config"
	"github.com/rcastillo-dev/terralote-backend/pkg/logger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	logg := logger.New(logger.Options{
		ServiceName: "router-test",
		Output:      io.Discard,
	})
	return NewRouter(cfg, logg, nil, nil, nil, nil, nil, nil, nil)
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Terralote-Env"))
}

func TestRouterUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRouterRegistersMutatingRoutes(t *testing.T) {
	router := newTestRouter(t)

	// Services are nil, so a registered route answers 500 instead of 404 or 405.
	for _, target := range []string{
		"/api/v1/lots",
		"/api/v1/reservations",
		"/api/v1/sweep",
	} {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{}`))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equalf(t, http.StatusInternalServerError, resp.Code, "route %s", target)
	}
}
