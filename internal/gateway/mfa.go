package gateway

import (
	"net/http"
	"time"

	"github.com/BradenHooton/adminguard/internal/models"
	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
)

// handleMFA completes a login that is pending a TOTP code
func (g *Gateway) handleMFA(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	info := infoFrom(ctx)
	cfg := info.Config

	if g.deps.Guard.IsMFALockedOut(ctx, info.ClientIP, cfg) {
		g.deps.Audit.Record(ctx, models.ActionBruteForceBlocked, models.AuditMetadata{
			"step":         "mfa",
			"max_attempts": cfg.MaxLoginAttempts,
		}, info.ClientIP, info.UserAgent)
		g.cfg.Timing.WaitFrom(ctx, start, false)
		writeLockedOut(w, cfg.LockoutDurationMinutes)
		return
	}

	var req MFARequest
	if err := decodeBody(r, &req); err != nil {
		g.rejectMalformed(ctx, w, r, start, err)
		return
	}

	if !g.deps.Guard.HasPendingMFA(ctx, info.ClientIP, g.cfg.MFAPendingWindow) {
		g.deps.Audit.Record(ctx, models.ActionMFAFailed, models.AuditMetadata{
			"reason": "no_pending_login",
		}, info.ClientIP, info.UserAgent)
		g.cfg.Timing.WaitFrom(ctx, start, false)
		pkghttp.WriteJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid MFA token"})
		return
	}

	if err := ValidateRequest(&req); err != nil || !g.verifyMFAToken(req.Token, cfg.MFASecretKey) {
		g.deps.Audit.Record(ctx, models.ActionMFAFailed, models.AuditMetadata{
			"reason": "invalid_token",
		}, info.ClientIP, info.UserAgent)
		g.cfg.Timing.WaitFrom(ctx, start, false)
		pkghttp.WriteJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid MFA token"})
		return
	}

	if !g.issueSession(ctx, w, info) {
		return
	}
	g.deps.Audit.Record(ctx, models.ActionMFASuccess, nil, info.ClientIP, info.UserAgent)
	pkghttp.WriteJSON(w, http.StatusOK, authenticatedBody{Success: true, Redirect: g.cfg.AfterLoginRedirect})
}
