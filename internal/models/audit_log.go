package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRetention is the default time an audit event is kept before TTL expiry.
const AuditRetention = 365 * 24 * time.Hour

// ActionType enumerates the security events the gateway records.
type ActionType string

const (
	ActionLoginFailed            ActionType = "LOGIN_FAILED"
	ActionLoginSuccess           ActionType = "LOGIN_SUCCESS"
	ActionLoginSuccessPendingMFA ActionType = "LOGIN_SUCCESS_PENDING_MFA"
	ActionMFAFailed              ActionType = "MFA_FAILED"
	ActionMFASuccess             ActionType = "MFA_SUCCESS"
	ActionSessionIPMismatch      ActionType = "SESSION_IP_MISMATCH"
	ActionSessionExpired         ActionType = "SESSION_EXPIRED"
	ActionIPBlocked              ActionType = "IP_BLOCKED"
	ActionBruteForceBlocked      ActionType = "BRUTE_FORCE_BLOCKED"
	ActionLogout                 ActionType = "LOGOUT"
	ActionAuthError              ActionType = "AUTH_ERROR"
)

var actionTypes = map[ActionType]bool{
	ActionLoginFailed:            true,
	ActionLoginSuccess:           true,
	ActionLoginSuccessPendingMFA: true,
	ActionMFAFailed:              true,
	ActionMFASuccess:             true,
	ActionSessionIPMismatch:      true,
	ActionSessionExpired:         true,
	ActionIPBlocked:              true,
	ActionBruteForceBlocked:      true,
	ActionLogout:                 true,
	ActionAuthError:              true,
}

// Valid reports whether a is one of the known action types.
func (a ActionType) Valid() bool {
	return actionTypes[a]
}

// IsFailure reports whether the action records a rejected or failed operation.
func (a ActionType) IsFailure() bool {
	switch a {
	case ActionLoginSuccess, ActionLoginSuccessPendingMFA, ActionMFASuccess, ActionLogout:
		return false
	default:
		return true
	}
}

// AuditEvent is one append-only security event.
type AuditEvent struct {
	ActionID   string        `db:"action_id" json:"action_id"`
	Timestamp  time.Time     `db:"timestamp" json:"timestamp"`
	ActionType ActionType    `db:"action_type" json:"action_type"`
	UserIP     string        `db:"user_ip" json:"user_ip"`
	UserAgent  string        `db:"user_agent" json:"user_agent"`
	Details    AuditMetadata `db:"details" json:"details"`
	ExpiresAt  time.Time     `db:"expires_at" json:"expires_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%w: unsupported audit metadata type %T", ErrBadRequest, value)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(am))
}
