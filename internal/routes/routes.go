package routes

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
	"github.com/go-chi/chi/v5"
)

// HealthChecker is a store that can be pinged
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Stores map[string]string `json:"stores"`
}

// RegisterRoutes mounts the operational endpoints and hands every other path
// to the gateway
func RegisterRoutes(router chi.Router, gateway http.Handler, metricsHandler http.Handler, checks map[string]HealthChecker) {
	router.Get("/health", healthHandler(checks))
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}
	router.Mount("/", gateway)
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "healthy", Stores: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check.HealthCheck(ctx); err != nil {
				resp.Status = "unhealthy"
				resp.Stores[name] = "down"
				continue
			}
			resp.Stores[name] = "up"
		}

		status := http.StatusOK
		if resp.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		pkghttp.WriteJSON(w, status, resp)
	}
}
