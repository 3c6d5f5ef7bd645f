package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Gateway errors
	ErrConfigUnavailable     = errors.New("security configuration unavailable")
	ErrSessionCreationFailed = errors.New("session creation failed")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrBlockedByPolicy       = errors.New("blocked by rate limit policy")
)
