package models

import (
	"testing"
	"time"
)

func TestActionType_Valid(t *testing.T) {
	for action := range actionTypes {
		if !action.Valid() {
			t.Errorf("expected %s to be valid", action)
		}
	}

	if ActionType("LOGIN_MAYBE").Valid() {
		t.Error("expected unknown action type to be invalid")
	}
}

func TestActionType_IsFailure(t *testing.T) {
	tests := []struct {
		action  ActionType
		failure bool
	}{
		{ActionLoginFailed, true},
		{ActionMFAFailed, true},
		{ActionIPBlocked, true},
		{ActionSessionIPMismatch, true},
		{ActionAuthError, true},
		{ActionLoginSuccess, false},
		{ActionLoginSuccessPendingMFA, false},
		{ActionMFASuccess, false},
		{ActionLogout, false},
	}

	for _, tt := range tests {
		if got := tt.action.IsFailure(); got != tt.failure {
			t.Errorf("%s.IsFailure() = %v, want %v", tt.action, got, tt.failure)
		}
	}
}

func TestAuditMetadata_ScanAndValue(t *testing.T) {
	original := AuditMetadata{"reason": "invalid_password", "attempt": float64(2)}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var scanned AuditMetadata
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if scanned["reason"] != "invalid_password" {
		t.Errorf("expected reason invalid_password, got %v", scanned["reason"])
	}
	if scanned["attempt"] != float64(2) {
		t.Errorf("expected attempt 2, got %v", scanned["attempt"])
	}
}

func TestAuditMetadata_ScanNil(t *testing.T) {
	var am AuditMetadata
	if err := am.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if am == nil || len(am) != 0 {
		t.Errorf("expected empty metadata, got %v", am)
	}
}

func TestAuditMetadata_ScanRejectsUnknownType(t *testing.T) {
	var am AuditMetadata
	if err := am.Scan(42); err == nil {
		t.Error("expected error scanning int into metadata")
	}
}

func TestRateLimitPolicy_WindowStart(t *testing.T) {
	policy := RateLimitPolicy{MaxCalls: 5, Window: time.Minute}
	now := time.Date(2026, 3, 4, 10, 15, 42, 500_000_000, time.UTC)

	start := policy.WindowStart(now)

	if !start.Equal(time.Date(2026, 3, 4, 10, 15, 0, 0, time.UTC)) {
		t.Errorf("unexpected window start %v", start)
	}
	if !policy.WindowStart(start.Add(59 * time.Second)).Equal(start) {
		t.Error("expected same window for times within one minute")
	}
	if policy.WindowStart(start.Add(time.Minute)).Equal(start) {
		t.Error("expected next window after one minute")
	}
}

func TestSecurityConfig_Validate(t *testing.T) {
	valid := SecurityConfig{
		AdminPasswordHash:      "$2a$10$abcdefghijklmnopqrstuv",
		MaxLoginAttempts:       3,
		LockoutDurationMinutes: 15,
		SessionTimeoutMinutes:  60,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	mfaWithoutSecret := valid
	mfaWithoutSecret.MFAEnabled = true
	if err := mfaWithoutSecret.Validate(); err == nil {
		t.Error("expected error when MFA is enabled without a secret")
	}

	noAttempts := valid
	noAttempts.MaxLoginAttempts = 0
	if err := noAttempts.Validate(); err == nil {
		t.Error("expected error for zero maxLoginAttempts")
	}
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Minute)}

	if s.IsExpired(now) {
		t.Error("session should not be expired before expiresAt")
	}
	if !s.IsExpired(now.Add(time.Minute)) {
		t.Error("session should be expired at expiresAt")
	}
}
