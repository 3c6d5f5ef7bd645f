package gateway

import (
	"log/slog"
	"net/http"

	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
)

// handleUsage reports today's API spend and the rate-limit policy table
func (g *Gateway) handleUsage(w http.ResponseWriter, r *http.Request) {
	if g.deps.Usage == nil {
		pkghttp.WriteJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
		return
	}

	usage, err := g.deps.Usage.Usage(r.Context())
	if err != nil {
		g.logger.ErrorContext(r.Context(), "failed to load usage", slog.String("error", err.Error()))
		writeInternalError(w)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, usage)
}
