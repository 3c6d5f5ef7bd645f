//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BradenHooton/adminguard/internal/auth"
	"github.com/BradenHooton/adminguard/internal/config"
	"github.com/BradenHooton/adminguard/internal/gateway"
	"github.com/BradenHooton/adminguard/internal/metrics"
	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/BradenHooton/adminguard/internal/repositories"
	"github.com/BradenHooton/adminguard/internal/routes"
	"github.com/BradenHooton/adminguard/internal/services"
	pkgauth "github.com/BradenHooton/adminguard/pkg/auth"
	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
)

const adminPassword = "Gl4cier-Harbor!92"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

type staticSecret struct {
	blob []byte
}

func (s staticSecret) GetSecret(ctx context.Context, secretID string) ([]byte, error) {
	return s.blob, nil
}

// newTestServer wires the full stack over the Postgres test database
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := discardLogger()

	hash, err := pkgauth.HashPasswordWithCost(adminPassword, bcrypt.MinCost)
	require.NoError(t, err)
	blob, err := json.Marshal(models.SecurityConfig{
		AdminPasswordHash:      hash,
		AllowedIPs:             []string{"203.0.113.0/24"},
		MaxLoginAttempts:       3,
		LockoutDurationMinutes: 15,
		SessionTimeoutMinutes:  30,
	})
	require.NoError(t, err)

	m := metrics.New()
	auditRepo := repositories.NewAuditEventRepository(testDB.DB)
	auditService := services.NewAuditService(auditRepo, logger, m)
	limiter := services.NewAPILimiter(
		repositories.NewRateLimitWindowRepository(testDB.DB),
		repositories.NewCostLedgerRepository(testDB.DB),
		services.APILimiterConfig{Policies: config.DefaultPolicies(), DailyCostThreshold: 10},
		m, logger)

	origin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("origin:" + r.URL.Path))
	})

	gw := gateway.New(gateway.Config{
		IPConfig: &pkghttp.IPConfig{TrustForwardedHeaders: true},
		Cookie:   auth.DefaultCookieConfig(),
	}, gateway.Dependencies{
		Configs:  services.NewSecurityConfigService(staticSecret{blob: blob}, "admin/security", logger),
		Audit:    auditService,
		Guard:    services.NewBruteForceGuard(auditRepo, logger),
		Sessions: services.NewSessionService(repositories.NewSessionRepository(testDB.DB), auditService, logger),
		Usage:    limiter,
		Origin:   origin,
	}, logger)

	router := chi.NewRouter()
	router.Use(m.Instrument)
	routes.RegisterRoutes(router, gw, m.Handler(), map[string]routes.HealthChecker{"postgres": testDB.DB})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func send(t *testing.T, srv *httptest.Server, method, path, clientIP, body string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-For", clientIP)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestGateway_LockoutOverPostgres(t *testing.T) {
	resetTables(t)
	srv := newTestServer(t)

	var codes []int
	var last *http.Response
	for i := 0; i < 4; i++ {
		last = send(t, srv, http.MethodPost, gateway.LoginPath, "203.0.113.7", `{"password":"wrong"}`, nil)
		codes = append(codes, last.StatusCode)
	}

	assert.Equal(t, []int{401, 401, 429, 429}, codes)
	assert.Equal(t, "15", last.Header.Get("Retry-After"))

	var failed int
	err := testDB.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM audit_events WHERE action_type = 'LOGIN_FAILED' AND user_ip = '203.0.113.7'`).Scan(&failed)
	require.NoError(t, err)
	assert.Equal(t, 3, failed)
}

func TestGateway_SessionLifecycleOverPostgres(t *testing.T) {
	resetTables(t)
	srv := newTestServer(t)

	resp := send(t, srv, http.MethodGet, "/admin/", "203.0.113.7", "", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin-login.html", resp.Header.Get("Location"))

	resp = send(t, srv, http.MethodPost, gateway.LoginPath, "203.0.113.7", `{"password":"`+adminPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, 1800, cookie.MaxAge)

	resp = send(t, srv, http.MethodGet, "/admin/", "203.0.113.7", "", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "origin:/admin/", string(body))

	resp = send(t, srv, http.MethodGet, gateway.UsagePath, "203.0.113.7", "", cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Another allowlisted address presenting the cookie loses the session
	resp = send(t, srv, http.MethodGet, "/admin/", "203.0.113.99", "", cookie)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	var sessions int
	require.NoError(t, testDB.Pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM sessions`).Scan(&sessions))
	assert.Equal(t, 0, sessions)

	resp = send(t, srv, http.MethodGet, "/health", "192.0.2.1", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = send(t, srv, http.MethodGet, "/metrics", "192.0.2.1", "", nil)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `auth_events_total{action_type="SESSION_IP_MISMATCH"} 1`)
}

func TestAPILimiter_OverPostgres(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	limiter := services.NewAPILimiter(
		repositories.NewRateLimitWindowRepository(testDB.DB),
		repositories.NewCostLedgerRepository(testDB.DB),
		services.APILimiterConfig{
			Policies: map[string]models.RateLimitPolicy{
				"ce:GetCostAndUsage": {MaxCalls: 5, Window: time.Hour, CostPerCall: 0.4},
			},
			DailyCostThreshold: 1,
		},
		nil, discardLogger())
	notifier := &services.MockAlertNotifier{}
	limiter.SetNotifier(notifier)

	allowed := 0
	for i := 0; i < 6; i++ {
		err := limiter.Do(ctx, "ce:GetCostAndUsage", func(context.Context) error { return nil })
		if err == nil {
			allowed++
		} else {
			assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
		}
	}

	assert.Equal(t, 5, allowed)
	require.Len(t, notifier.Alerts, 1)
	assert.InDelta(t, 1.2, notifier.Alerts[0].Total, 1e-9)

	usage, err := limiter.Usage(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, usage.CumulativeCost, 1e-9)
	require.Len(t, usage.Policies, 1)
	assert.Equal(t, 5, usage.Policies[0].CallsInWindow)
}
