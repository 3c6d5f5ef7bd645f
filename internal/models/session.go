package models

import "time"

// Session is an authenticated admin session bound to the client IP it was issued to.
type Session struct {
	SessionID    string    `db:"session_id" json:"session_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UserIP       string    `db:"user_ip" json:"user_ip"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	LastActivity time.Time `db:"last_activity" json:"last_activity"`
}

// IsExpired reports whether the session is no longer valid at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
