package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/adminguard/internal/auth"
	"github.com/BradenHooton/adminguard/internal/config"
	"github.com/BradenHooton/adminguard/internal/middleware"
	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/BradenHooton/adminguard/internal/repositories/memory"
	"github.com/BradenHooton/adminguard/internal/services"
	pkgauth "github.com/BradenHooton/adminguard/pkg/auth"
	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassword  = "correct horse battery staple"
	testMFASecret = "JBSWY3DPEHPK3PXP"
	adminIP       = "203.0.113.7"
)

type staticConfig struct {
	cfg *models.SecurityConfig
	err error
}

func (s *staticConfig) GetConfig(ctx context.Context) (*models.SecurityConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cfg, nil
}

type failingSessions struct{}

func (failingSessions) Create(ctx context.Context, clientIP, userAgent string, timeout time.Duration) (*models.Session, error) {
	return nil, models.ErrSessionCreationFailed
}

func (failingSessions) Validate(ctx context.Context, sessionID, clientIP, userAgent string) bool {
	return false
}

func (failingSessions) Invalidate(ctx context.Context, sessionID string) error {
	return nil
}

type testEnv struct {
	gateway  *Gateway
	configs  *staticConfig
	audit    *memory.AuditStore
	sessions *memory.SessionStore
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSecurityConfig(t *testing.T) *models.SecurityConfig {
	t.Helper()
	hash, err := pkgauth.HashPasswordWithCost(testPassword, bcrypt.MinCost)
	require.NoError(t, err)
	return &models.SecurityConfig{
		AdminPasswordHash:      hash,
		MFASecretKey:           testMFASecret,
		MFAEnabled:             false,
		AllowedIPs:             []string{"203.0.113.0/24", "198.51.100.9"},
		MaxLoginAttempts:       3,
		LockoutDurationMinutes: 15,
		SessionTimeoutMinutes:  30,
	}
}

func originHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("origin:" + r.URL.Path))
	})
}

func newTestEnv(t *testing.T, mutate func(*models.SecurityConfig)) *testEnv {
	t.Helper()
	cfg := testSecurityConfig(t)
	if mutate != nil {
		mutate(cfg)
	}

	logger := discardLogger()
	auditStore := memory.NewAuditStore()
	sessionStore := memory.NewSessionStore()
	auditSvc := services.NewAuditService(auditStore, logger, nil)

	limiter := services.NewAPILimiter(memory.NewWindowStore(), memory.NewCostLedgerStore(), services.APILimiterConfig{
		Policies:           config.DefaultPolicies(),
		DailyCostThreshold: 10,
	}, nil, logger)

	env := &testEnv{
		configs:  &staticConfig{cfg: cfg},
		audit:    auditStore,
		sessions: sessionStore,
	}
	env.gateway = New(Config{
		Env:            "development",
		IPConfig:       &pkghttp.IPConfig{TrustForwardedHeaders: true},
		Cookie:         auth.DefaultCookieConfig(),
		LoginRateLimit: middleware.RateLimitConfig{RequestsPerMinute: 1000},
	}, Dependencies{
		Configs:  env.configs,
		Audit:    auditSvc,
		Guard:    services.NewBruteForceGuard(auditStore, logger),
		Sessions: services.NewSessionService(sessionStore, auditSvc, logger),
		Usage:    limiter,
		Origin:   originHandler(),
	}, logger)
	return env
}

func (e *testEnv) do(method, target, clientIP, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("X-Forwarded-For", clientIP+", 10.0.0.1")
	req.Header.Set("User-Agent", "gateway-test")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.gateway.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(clientIP, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(LoginRequest{Password: password})
	return e.do(http.MethodPost, LoginPath, clientIP, string(body))
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGateway_LoginWithoutMFASetsSessionCookie(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.login(adminIP, testPassword)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "/admin/", body["redirect"])

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, 30*60, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=1800")

	assert.Equal(t, 1, env.sessions.Len())
	assert.Equal(t, 1, env.audit.CountType(models.ActionLoginSuccess))
}

func TestGateway_LoginAcceptsBase64Envelope(t *testing.T) {
	env := newTestEnv(t, nil)
	raw, _ := json.Marshal(LoginRequest{Password: testPassword})

	rec := env.do(http.MethodPost, LoginPath, adminIP, base64.StdEncoding.EncodeToString(raw))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, sessionCookie(rec))
}

func TestGateway_RepeatedBadPasswordsLockOut(t *testing.T) {
	env := newTestEnv(t, nil)

	codes := make([]int, 0, 4)
	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = env.login(adminIP, "wrong password")
		codes = append(codes, last.Code)
		if last.Code == http.StatusUnauthorized {
			body := decodeJSON(t, last)
			assert.Equal(t, false, body["mfa_required"])
			assert.NotEmpty(t, body["error"])
			assert.Nil(t, sessionCookie(last))
		}
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
	assert.Equal(t, "15", last.Header().Get("Retry-After"))
	assert.Equal(t, float64(15), decodeJSON(t, last)["retry_after"])

	// Lockout applies even to the right password
	rec := env.login(adminIP, testPassword)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Nil(t, sessionCookie(rec))

	// Other clients are unaffected
	assert.Equal(t, http.StatusOK, env.login("198.51.100.9", testPassword).Code)

	assert.Equal(t, 3, env.audit.CountType(models.ActionLoginFailed))
	assert.GreaterOrEqual(t, env.audit.CountType(models.ActionBruteForceBlocked), 3)
}

func TestGateway_UsernameIsCheckedWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(c *models.SecurityConfig) { c.AdminUsername = "root" })

	body, _ := json.Marshal(LoginRequest{Username: "admin", Password: testPassword})
	rec := env.do(http.MethodPost, LoginPath, adminIP, string(body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body, _ = json.Marshal(LoginRequest{Username: "root", Password: testPassword})
	rec = env.do(http.MethodPost, LoginPath, adminIP, string(body))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateway_LoginWithMFA(t *testing.T) {
	env := newTestEnv(t, func(c *models.SecurityConfig) { c.MFAEnabled = true })

	rec := env.login(adminIP, testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["mfa_required"])
	assert.Nil(t, sessionCookie(rec), "no session while MFA is pending")
	assert.Equal(t, 0, env.sessions.Len())
	assert.Equal(t, 1, env.audit.CountType(models.ActionLoginSuccessPendingMFA))

	rec = env.do(http.MethodPost, MFAPath, adminIP, `{"token":"000000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, env.audit.CountType(models.ActionMFAFailed))

	code, err := auth.GenerateMFAToken(testMFASecret, time.Now())
	require.NoError(t, err)
	rec = env.do(http.MethodPost, MFAPath, adminIP, `{"token":"`+code+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/admin/", decodeJSON(t, rec)["redirect"])
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, 30*60, cookie.MaxAge)
	assert.Equal(t, 1, env.audit.CountType(models.ActionMFASuccess))
}

func TestGateway_MFARequiresPendingLogin(t *testing.T) {
	env := newTestEnv(t, func(c *models.SecurityConfig) { c.MFAEnabled = true })

	code, err := auth.GenerateMFAToken(testMFASecret, time.Now())
	require.NoError(t, err)
	rec := env.do(http.MethodPost, MFAPath, adminIP, `{"token":"`+code+`"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))
	events := env.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.ActionMFAFailed, events[0].ActionType)
	assert.Equal(t, "no_pending_login", events[0].Details["reason"])
}

func TestGateway_MFACodeCannotBeReplayed(t *testing.T) {
	env := newTestEnv(t, func(c *models.SecurityConfig) { c.MFAEnabled = true })
	require.Equal(t, http.StatusOK, env.login(adminIP, testPassword).Code)

	code, err := auth.GenerateMFAToken(testMFASecret, time.Now())
	require.NoError(t, err)
	rec := env.do(http.MethodPost, MFAPath, adminIP, `{"token":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, MFAPath, adminIP, `{"token":"`+code+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))
	assert.Equal(t, 1, env.sessions.Len())
}

func TestGateway_RepeatedBadMFACodesLockOut(t *testing.T) {
	env := newTestEnv(t, func(c *models.SecurityConfig) { c.MFAEnabled = true })
	require.Equal(t, http.StatusOK, env.login(adminIP, testPassword).Code)

	for i := 0; i < 3; i++ {
		rec := env.do(http.MethodPost, MFAPath, adminIP, `{"token":"000000"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	code, err := auth.GenerateMFAToken(testMFASecret, time.Now())
	require.NoError(t, err)
	rec := env.do(http.MethodPost, MFAPath, adminIP, `{"token":"`+code+`"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "15", rec.Header().Get("Retry-After"))
	assert.Nil(t, sessionCookie(rec))
	assert.Equal(t, 1, env.audit.CountType(models.ActionBruteForceBlocked))
}

func TestGateway_MFAPendingIsBoundToClientIP(t *testing.T) {
	env := newTestEnv(t, func(c *models.SecurityConfig) { c.MFAEnabled = true })
	require.Equal(t, http.StatusOK, env.login(adminIP, testPassword).Code)

	code, err := auth.GenerateMFAToken(testMFASecret, time.Now())
	require.NoError(t, err)
	rec := env.do(http.MethodPost, MFAPath, "198.51.100.9", `{"token":"`+code+`"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateway_StaticAssetsBypassAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/assets/site.css", "/app.js", "/img/logo.PNG", "/fonts/x.woff2", "/admin-login.html"} {
		rec := env.do(http.MethodGet, path, adminIP, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "origin:"+path, rec.Body.String(), path)
	}
}

func TestGateway_ProtectedPathRedirectsWithoutSession(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		rec := env.do(method, "/admin/", adminIP, "")
		assert.Equal(t, http.StatusFound, rec.Code, method)
		assert.Equal(t, "/admin-login.html", rec.Header().Get("Location"))
		assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	}

	rec := env.do(http.MethodGet, "/admin/", adminIP, "", &http.Cookie{Name: auth.SessionCookieName, Value: "forged"})
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestGateway_ValidSessionPassesThrough(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie := sessionCookie(env.login(adminIP, testPassword))
	require.NotNil(t, cookie)

	rec := env.do(http.MethodGet, "/admin/reports", adminIP, "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "origin:/admin/reports", rec.Body.String())

	// A GET on the login endpoint is not the login handler
	rec = env.do(http.MethodGet, LoginPath, adminIP, "", cookie)
	assert.Equal(t, "origin:"+LoginPath, rec.Body.String())
}

func TestGateway_SessionFromAnotherIPIsRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie := sessionCookie(env.login(adminIP, testPassword))
	require.NotNil(t, cookie)

	rec := env.do(http.MethodGet, "/admin/", "198.51.100.9", "", cookie)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, 1, env.audit.CountType(models.ActionSessionIPMismatch))

	// The session is gone for the original client too
	rec = env.do(http.MethodGet, "/admin/", adminIP, "", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestGateway_BlockedIPIsRejectedBeforeAnythingElse(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/admin/", "/site.css", LoginPath} {
		rec := env.do(http.MethodGet, path, "192.0.2.44", "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	}
	assert.Equal(t, 3, env.audit.CountType(models.ActionIPBlocked))
	assert.Equal(t, 0, env.audit.CountType(models.ActionLoginFailed))
}

func TestGateway_EmptyAllowlistAdmitsEveryone(t *testing.T) {
	env := newTestEnv(t, func(c *models.SecurityConfig) { c.AllowedIPs = nil })

	rec := env.do(http.MethodGet, "/site.css", "192.0.2.44", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateway_ConfigUnavailableIsFatal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.configs.err = models.ErrConfigUnavailable

	rec := env.do(http.MethodGet, "/site.css", adminIP, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decodeJSON(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "unavailable")
	assert.Equal(t, 1, env.audit.CountType(models.ActionAuthError))
}

func TestGateway_MalformedBodyIsAudited(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{"", "%%%not-base64%%%", `{"password":`, `{"username":"x"}`} {
		rec := env.do(http.MethodPost, LoginPath, adminIP, body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, body)
	}
	assert.Equal(t, 4, env.audit.CountType(models.ActionAuthError))
	assert.Equal(t, 0, env.audit.CountType(models.ActionLoginFailed))
}

func TestGateway_SessionCreationFailureIs500(t *testing.T) {
	env := newTestEnv(t, nil)
	env.gateway.deps.Sessions = failingSessions{}

	rec := env.login(adminIP, testPassword)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, sessionCookie(rec))
	assert.Equal(t, 1, env.audit.CountType(models.ActionAuthError))
	assert.Equal(t, 0, env.audit.CountType(models.ActionLoginSuccess))
}

func TestGateway_Logout(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie := sessionCookie(env.login(adminIP, testPassword))
	require.NotNil(t, cookie)

	rec := env.do(http.MethodPost, LogoutPath, adminIP, "", cookie)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin-login.html", rec.Header().Get("Location"))
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Equal(t, 0, env.sessions.Len())
	assert.Equal(t, 1, env.audit.CountType(models.ActionLogout))

	rec = env.do(http.MethodGet, "/admin/", adminIP, "", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestGateway_UsageRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, UsagePath, adminIP, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := sessionCookie(env.login(adminIP, testPassword))
	require.NotNil(t, cookie)
	rec = env.do(http.MethodGet, UsagePath, adminIP, "", cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	var usage services.Usage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))
	assert.Equal(t, models.LedgerDate(time.Now()), usage.Date)
	assert.Equal(t, 10.0, usage.DailyCostThreshold)
	assert.Len(t, usage.Policies, len(config.DefaultPolicies()))
}

func TestGateway_SecurityHeadersOnEveryResponse(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/admin/", "192.0.2.44", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestIsStaticAsset(t *testing.T) {
	assert.True(t, isStaticAsset("/a/b/c.css"))
	assert.True(t, isStaticAsset("/favicon.ico"))
	assert.True(t, isStaticAsset("/font.EOT"))
	assert.False(t, isStaticAsset("/admin/"))
	assert.False(t, isStaticAsset("/report.pdf"))
	assert.False(t, isStaticAsset("/css"))
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "raw json", body: `{"token":"123456"}`, want: "123456"},
		{name: "base64 json", body: base64.StdEncoding.EncodeToString([]byte(`{"token":"654321"}`)), want: "654321"},
		{name: "padded whitespace", body: "  {\"token\":\"111111\"}\n", want: "111111"},
		{name: "empty", body: "", wantErr: true},
		{name: "garbage", body: "!!!", wantErr: true},
		{name: "base64 of garbage", body: base64.StdEncoding.EncodeToString([]byte("nope")), wantErr: true},
		{name: "too large", body: `{"token":"` + strings.Repeat("1", maxBodyBytes) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, MFAPath, strings.NewReader(tt.body))
			var got MFARequest
			err := decodeBody(req, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Token)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&MFARequest{Token: "123456"}))
	assert.Error(t, ValidateRequest(&MFARequest{Token: "12345"}))
	assert.Error(t, ValidateRequest(&MFARequest{Token: "12345a"}))
	assert.NoError(t, ValidateRequest(&LoginRequest{Password: "x"}))
	assert.Error(t, ValidateRequest(&LoginRequest{Username: "admin"}))
	assert.Error(t, ValidateRequest(&LoginRequest{Password: strings.Repeat("p", 73)}))

	err := ValidateRequest(&MFARequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestNewOrigin_ProxyStripsSessionCookie(t *testing.T) {
	var gotCookies []*http.Cookie
	var gotForwarded string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookies = r.Cookies()
		gotForwarded = r.Header.Get("X-Forwarded-Host")
		_, _ = w.Write([]byte("upstream:" + r.URL.Path))
	}))
	defer upstream.Close()

	origin, err := NewOrigin(upstream.URL, "", discardLogger())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://admin.example.com/admin/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "secret-token"})
	req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
	rec := httptest.NewRecorder()
	origin.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "upstream:/admin/", rec.Body.String())
	require.Len(t, gotCookies, 1)
	assert.Equal(t, "theme", gotCookies[0].Name)
	assert.Equal(t, "admin.example.com", gotForwarded)
}

func TestNewOrigin_UnreachableUpstreamIs502(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstreamURL := upstream.URL
	upstream.Close()

	origin, err := NewOrigin(upstreamURL, "", discardLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	origin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestNewOrigin_Validation(t *testing.T) {
	_, err := NewOrigin("", "", discardLogger())
	assert.Error(t, err)

	_, err = NewOrigin("not-a-url", "", discardLogger())
	assert.Error(t, err)

	h, err := NewOrigin("", t.TempDir(), discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestConfigProviderErrorIsNotLeaked(t *testing.T) {
	env := newTestEnv(t, nil)
	env.configs.err = errors.New("AccessDeniedException: arn:aws:secretsmanager:...")

	rec := env.do(http.MethodGet, "/admin/", adminIP, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "arn:aws")
}
