package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/adminguard/internal/auth"
	"github.com/BradenHooton/adminguard/internal/models"
	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
)

// handleLogin drives the password step of the login state machine
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	info := infoFrom(ctx)
	cfg := info.Config

	if g.deps.Guard.IsLockedOut(ctx, info.ClientIP, cfg) {
		g.deps.Audit.Record(ctx, models.ActionBruteForceBlocked, models.AuditMetadata{
			"max_attempts": cfg.MaxLoginAttempts,
		}, info.ClientIP, info.UserAgent)
		g.cfg.Timing.WaitFrom(ctx, start, false)
		writeLockedOut(w, cfg.LockoutDurationMinutes)
		return
	}

	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		g.rejectMalformed(ctx, w, r, start, err)
		return
	}
	if err := ValidateRequest(&req); err != nil {
		g.rejectMalformed(ctx, w, r, start, err)
		return
	}

	if !g.checkCredentials(req, cfg) {
		g.deps.Audit.Record(ctx, models.ActionLoginFailed, models.AuditMetadata{
			"reason": "invalid_credentials",
		}, info.ClientIP, info.UserAgent)

		// The failure just recorded may be the one that trips the lockout
		if g.deps.Guard.IsLockedOut(ctx, info.ClientIP, cfg) {
			g.deps.Audit.Record(ctx, models.ActionBruteForceBlocked, models.AuditMetadata{
				"max_attempts": cfg.MaxLoginAttempts,
			}, info.ClientIP, info.UserAgent)
			g.cfg.Timing.WaitFrom(ctx, start, false)
			writeLockedOut(w, cfg.LockoutDurationMinutes)
			return
		}

		g.cfg.Timing.WaitFrom(ctx, start, false)
		pkghttp.WriteJSON(w, http.StatusUnauthorized, loginFailedBody{
			Error:       "Invalid credentials",
			MFARequired: false,
		})
		return
	}

	if cfg.MFAEnabled {
		g.deps.Audit.Record(ctx, models.ActionLoginSuccessPendingMFA, nil, info.ClientIP, info.UserAgent)
		pkghttp.WriteJSON(w, http.StatusOK, mfaRequiredBody{Success: true, MFARequired: true})
		return
	}

	if !g.issueSession(ctx, w, info) {
		return
	}
	g.deps.Audit.Record(ctx, models.ActionLoginSuccess, nil, info.ClientIP, info.UserAgent)
	pkghttp.WriteJSON(w, http.StatusOK, authenticatedBody{Success: true, Redirect: g.cfg.AfterLoginRedirect})
}

// checkCredentials always runs bcrypt, so a wrong username costs the same as
// a wrong password
func (g *Gateway) checkCredentials(req LoginRequest, cfg *models.SecurityConfig) bool {
	usernameOK := true
	if cfg.AdminUsername != "" {
		usernameOK = subtle.ConstantTimeCompare([]byte(req.Username), []byte(cfg.AdminUsername)) == 1
	}
	passwordOK := g.verifyPassword(req.Password, cfg.AdminPasswordHash)
	return usernameOK && passwordOK
}

// issueSession persists a session and sets its cookie. It writes the 500
// response itself and returns false when the session cannot be created.
func (g *Gateway) issueSession(ctx context.Context, w http.ResponseWriter, info *requestInfo) bool {
	session, err := g.deps.Sessions.Create(ctx, info.ClientIP, info.UserAgent, info.Config.SessionTimeout())
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to create session", slog.String("error", err.Error()))
		g.deps.Audit.Record(ctx, models.ActionAuthError, models.AuditMetadata{
			"reason": "session_creation_failed",
		}, info.ClientIP, info.UserAgent)
		writeInternalError(w)
		return false
	}

	auth.SetSessionCookie(w, session.SessionID, info.Config.SessionTimeoutMinutes*60, g.cfg.Cookie)
	return true
}

func (g *Gateway) rejectMalformed(ctx context.Context, w http.ResponseWriter, r *http.Request, start time.Time, err error) {
	info := infoFrom(ctx)
	reason := "malformed_body"
	if errors.Is(err, errEmptyBody) {
		reason = "empty_body"
	}
	g.logger.WarnContext(ctx, "rejected malformed request",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	g.deps.Audit.Record(ctx, models.ActionAuthError, models.AuditMetadata{
		"reason": reason,
		"path":   r.URL.Path,
	}, info.ClientIP, info.UserAgent)
	g.cfg.Timing.WaitFrom(ctx, start, false)
	pkghttp.WriteJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid request"})
}
