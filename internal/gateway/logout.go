package gateway

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/adminguard/internal/auth"
	"github.com/BradenHooton/adminguard/internal/models"
	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
)

func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info := infoFrom(ctx)

	if sessionID, err := auth.GetSessionCookie(r); err == nil {
		if err := g.deps.Sessions.Invalidate(ctx, sessionID); err != nil {
			g.logger.WarnContext(ctx, "failed to invalidate session on logout", slog.String("error", err.Error()))
		}
	}
	auth.ClearSessionCookie(w, g.cfg.Cookie)
	g.deps.Audit.Record(ctx, models.ActionLogout, nil, info.ClientIP, info.UserAgent)

	w.Header().Set("Location", g.cfg.LoginPagePath)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	pkghttp.WritePlainText(w, http.StatusFound, "Found")
}
