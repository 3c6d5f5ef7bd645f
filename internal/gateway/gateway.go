// Package gateway is the single entry point for admin-domain traffic. Every
// request is IP-checked against the security configuration, then either
// served by the login/MFA/logout endpoints or passed to the origin when it
// carries a valid session.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/BradenHooton/adminguard/internal/auth"
	"github.com/BradenHooton/adminguard/internal/middleware"
	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/BradenHooton/adminguard/internal/services"
	pkgauth "github.com/BradenHooton/adminguard/pkg/auth"
	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Gateway endpoints
const (
	LoginPath  = "/admin-login"
	MFAPath    = "/admin-mfa"
	LogoutPath = "/admin-logout"
	UsagePath  = "/admin-api/usage"
)

// Static assets pass through without a session
var staticExtensions = map[string]bool{
	"css": true, "js": true, "png": true, "jpg": true, "jpeg": true, "gif": true,
	"ico": true, "svg": true, "woff": true, "woff2": true, "ttf": true, "eot": true,
}

// ConfigProvider supplies the security configuration
type ConfigProvider interface {
	GetConfig(ctx context.Context) (*models.SecurityConfig, error)
}

// LockoutGuard answers brute-force and pending-MFA questions from the audit trail
type LockoutGuard interface {
	IsLockedOut(ctx context.Context, clientIP string, cfg *models.SecurityConfig) bool
	IsMFALockedOut(ctx context.Context, clientIP string, cfg *models.SecurityConfig) bool
	HasPendingMFA(ctx context.Context, clientIP string, window time.Duration) bool
}

// SessionManager issues and checks admin sessions
type SessionManager interface {
	Create(ctx context.Context, clientIP, userAgent string, timeout time.Duration) (*models.Session, error)
	Validate(ctx context.Context, sessionID, clientIP, userAgent string) bool
	Invalidate(ctx context.Context, sessionID string) error
}

// UsageReporter reports API spend for the usage endpoint
type UsageReporter interface {
	Usage(ctx context.Context) (*services.Usage, error)
}

// Config holds gateway settings
type Config struct {
	Env                string
	LoginPagePath      string
	AfterLoginRedirect string
	IPConfig           *pkghttp.IPConfig
	Cookie             auth.CookieConfig
	MFAPendingWindow   time.Duration
	LoginRateLimit     middleware.RateLimitConfig
	Timing             *auth.TimingDelay
}

// Dependencies are the collaborators the gateway drives
type Dependencies struct {
	Configs  ConfigProvider
	Audit    services.AuditRecorder
	Guard    LockoutGuard
	Sessions SessionManager
	Usage    UsageReporter
	Origin   http.Handler
}

// Gateway routes admin-domain requests
type Gateway struct {
	cfg    Config
	deps   Dependencies
	logger *slog.Logger
	router chi.Router

	verifyPassword func(candidate, storedHash string) bool
	verifyMFAToken func(token, secret string) bool
}

// New builds the gateway router
func New(cfg Config, deps Dependencies, logger *slog.Logger) *Gateway {
	if cfg.LoginPagePath == "" {
		cfg.LoginPagePath = "/admin-login.html"
	}
	if cfg.AfterLoginRedirect == "" {
		cfg.AfterLoginRedirect = "/admin/"
	}
	if cfg.MFAPendingWindow <= 0 {
		cfg.MFAPendingWindow = 5 * time.Minute
	}
	if cfg.LoginRateLimit.RequestsPerMinute <= 0 {
		cfg.LoginRateLimit = middleware.DefaultLoginRateLimit()
	}
	cfg.LoginRateLimit.IPConfig = cfg.IPConfig

	g := &Gateway{
		cfg:            cfg,
		deps:           deps,
		logger:         logger,
		verifyPassword: pkgauth.VerifyPassword,
		verifyMFAToken: auth.VerifyMFAToken,
	}
	g.router = g.routes()
	return g
}

func (g *Gateway) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: g.cfg.Env}))
	r.Use(g.admit)
	r.Use(g.bypassPublic)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(g.cfg.LoginRateLimit))
		r.Post(LoginPath, g.handleLogin)
		r.Post(MFAPath, g.handleMFA)
	})
	r.Post(LogoutPath, g.handleLogout)
	r.With(g.requireSession).Get(UsagePath, g.handleUsage)

	r.NotFound(g.handleProtected)
	r.MethodNotAllowed(g.handleProtected)
	return r
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

type contextKey int

const requestInfoKey contextKey = iota

// requestInfo is resolved once per request by admit
type requestInfo struct {
	ClientIP  string
	UserAgent string
	Config    *models.SecurityConfig
}

func infoFrom(ctx context.Context) *requestInfo {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		return info
	}
	return &requestInfo{}
}

// admit resolves the client, loads the security configuration and applies
// the IP allowlist. Nothing after it runs for a rejected client.
func (g *Gateway) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		info := &requestInfo{
			ClientIP:  pkghttp.ExtractClientIP(r, g.cfg.IPConfig),
			UserAgent: pkghttp.ExtractUserAgent(r),
		}

		cfg, err := g.deps.Configs.GetConfig(ctx)
		if err != nil {
			g.deps.Audit.Record(ctx, models.ActionAuthError, models.AuditMetadata{
				"reason": "config_unavailable",
				"path":   r.URL.Path,
			}, info.ClientIP, info.UserAgent)
			writeInternalError(w)
			return
		}
		info.Config = cfg

		allowed, malformed := auth.MatchAllowlist(info.ClientIP, cfg.AllowedIPs)
		if len(malformed) > 0 {
			g.logger.WarnContext(ctx, "ignoring malformed allowlist entries", slog.Any("entries", malformed))
		}
		if !allowed {
			g.deps.Audit.Record(ctx, models.ActionIPBlocked, models.AuditMetadata{
				"path":   r.URL.Path,
				"method": r.Method,
			}, info.ClientIP, info.UserAgent)
			pkghttp.WritePlainText(w, http.StatusForbidden, "Forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, requestInfoKey, info)))
	})
}

// bypassPublic passes static assets and the login page to the origin
func (g *Gateway) bypassPublic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isStaticAsset(r.URL.Path) || r.URL.Path == g.cfg.LoginPagePath {
			g.deps.Origin.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isStaticAsset(p string) bool {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	return ext != "" && staticExtensions[strings.ToLower(ext)]
}

// handleProtected serves every other path: origin with a valid session,
// otherwise a redirect to the login page
func (g *Gateway) handleProtected(w http.ResponseWriter, r *http.Request) {
	if g.hasValidSession(r) {
		g.deps.Origin.ServeHTTP(w, r)
		return
	}
	g.redirectToLogin(w)
}

// requireSession guards JSON endpoints; they answer 401 instead of redirecting
func (g *Gateway) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.hasValidSession(r) {
			pkghttp.WriteJSON(w, http.StatusUnauthorized, errorBody{Error: "Authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) hasValidSession(r *http.Request) bool {
	sessionID, err := auth.GetSessionCookie(r)
	if err != nil {
		return false
	}
	info := infoFrom(r.Context())
	return g.deps.Sessions.Validate(r.Context(), sessionID, info.ClientIP, info.UserAgent)
}

func (g *Gateway) redirectToLogin(w http.ResponseWriter) {
	w.Header().Set("Location", g.cfg.LoginPagePath)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	pkghttp.WritePlainText(w, http.StatusFound, "Found")
}
