package gateway

import (
	"net/http"
	"strconv"

	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
)

type errorBody struct {
	Error string `json:"error"`
}

type loginFailedBody struct {
	Error       string `json:"error"`
	MFARequired bool   `json:"mfa_required"`
}

type lockedOutBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"`
}

type mfaRequiredBody struct {
	Success     bool `json:"success"`
	MFARequired bool `json:"mfa_required"`
}

type authenticatedBody struct {
	Success  bool   `json:"success"`
	Redirect string `json:"redirect"`
}

func writeInternalError(w http.ResponseWriter) {
	pkghttp.WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
}

// writeLockedOut answers a locked-out client. Retry-After carries the lockout
// duration in minutes.
func writeLockedOut(w http.ResponseWriter, lockoutMinutes int) {
	w.Header().Set("Retry-After", strconv.Itoa(lockoutMinutes))
	pkghttp.WriteJSON(w, http.StatusTooManyRequests, lockedOutBody{
		Error:      "Too many failed login attempts",
		RetryAfter: lockoutMinutes,
	})
}
