package middleware

import (
	"net/http"
	"strconv"
	"time"

	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultLoginRateLimit returns the default throttle for the login and MFA endpoints
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
	}
}

// RateLimitByIP throttles requests per client IP, resolving the IP the same
// way the gateway does so forwarded traffic is keyed by the real client.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			pkghttp.WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error":       "Too many requests",
				"retry_after": 60,
			})
		}),
	)
}
