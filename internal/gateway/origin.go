package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/BradenHooton/adminguard/internal/auth"
	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
)

// NewOrigin returns the handler authenticated traffic is passed to: a reverse
// proxy when originURL is set, otherwise a file server rooted at originDir
func NewOrigin(originURL, originDir string, logger *slog.Logger) (http.Handler, error) {
	if originURL == "" {
		if originDir == "" {
			return nil, fmt.Errorf("either an origin URL or an origin directory is required")
		}
		return http.FileServer(http.Dir(originDir)), nil
	}

	target, err := url.Parse(originURL)
	if err != nil {
		return nil, fmt.Errorf("invalid origin URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("origin URL must be absolute: %q", originURL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			stripSessionCookie(pr.Out)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "origin request failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()))
			pkghttp.WriteJSON(w, http.StatusBadGateway, errorBody{Error: "Bad gateway"})
		},
	}, nil
}

// stripSessionCookie keeps the session token from reaching the origin
func stripSessionCookie(r *http.Request) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	kept := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == auth.SessionCookieName {
			continue
		}
		kept = append(kept, c.String())
	}
	if len(kept) > 0 {
		r.Header.Set("Cookie", strings.Join(kept, "; "))
	}
}
