package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newRouter(checks map[string]HealthChecker) chi.Router {
	gateway := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("gateway:" + r.URL.Path))
	})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
	router := chi.NewRouter()
	RegisterRoutes(router, gateway, metrics, checks)
	return router
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantStores map[string]string
	}{
		{
			name:       "all up",
			checks:     map[string]HealthChecker{"postgres": checkFunc(func(context.Context) error { return nil })},
			wantStatus: http.StatusOK,
			wantStores: map[string]string{"postgres": "up"},
		},
		{
			name: "one down",
			checks: map[string]HealthChecker{
				"postgres": checkFunc(func(context.Context) error { return nil }),
				"redis":    checkFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantStores: map[string]string{"postgres": "up", "redis": "down"},
		},
		{
			name:       "no stores",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantStores: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(tt.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStores, body.Stores)
			assert.NotContains(t, rec.Body.String(), "refused")
		})
	}
}

func TestEverythingElseGoesToGateway(t *testing.T) {
	router := newRouter(nil)

	for _, path := range []string{"/", "/admin/", "/admin-login", "/site.css"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, "gateway:"+path, rec.Body.String(), path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "metrics", rec.Body.String())
}
