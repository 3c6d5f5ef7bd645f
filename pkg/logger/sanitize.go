package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

// MaskIP hides the host part of an IPv4 address (e.g., "203.0.113.x")
func MaskIP(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "[masked]"
	}
	parts[3] = "x"
	return strings.Join(parts, ".")
}

// IPAttr returns the client IP attribute, masked in production
func IPAttr(key, ip, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, MaskIP(ip))
	}
	return slog.String(key, ip)
}

// TokenFingerprint returns a short, non-reversible identifier for a secret token
// so that log lines about the same session can be correlated.
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password",
		"token",
		"secret",
		"session",
		"totp",
		"otp",
		"code",
		"auth",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
