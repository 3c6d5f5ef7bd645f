package models

import (
	"fmt"
	"time"
)

// SecurityConfig is the admin gateway configuration blob held in the secret store.
// It is immutable once loaded.
type SecurityConfig struct {
	AdminUsername          string   `json:"adminUsername,omitempty"`
	AdminPasswordHash      string   `json:"adminPasswordHash"`
	MFASecretKey           string   `json:"mfaSecretKey"`
	MFAEnabled             bool     `json:"mfaEnabled"`
	AllowedIPs             []string `json:"allowedIPs"`
	MaxLoginAttempts       int      `json:"maxLoginAttempts"`
	LockoutDurationMinutes int      `json:"lockoutDurationMinutes"`
	SessionTimeoutMinutes  int      `json:"sessionTimeoutMinutes"`
}

// Validate rejects blobs that cannot drive the gateway safely.
func (c *SecurityConfig) Validate() error {
	if c.AdminPasswordHash == "" {
		return fmt.Errorf("adminPasswordHash is required")
	}
	if c.MFAEnabled && c.MFASecretKey == "" {
		return fmt.Errorf("mfaSecretKey is required when mfaEnabled is true")
	}
	if c.MaxLoginAttempts <= 0 {
		return fmt.Errorf("maxLoginAttempts must be positive (got %d)", c.MaxLoginAttempts)
	}
	if c.LockoutDurationMinutes <= 0 {
		return fmt.Errorf("lockoutDurationMinutes must be positive (got %d)", c.LockoutDurationMinutes)
	}
	if c.SessionTimeoutMinutes <= 0 {
		return fmt.Errorf("sessionTimeoutMinutes must be positive (got %d)", c.SessionTimeoutMinutes)
	}
	return nil
}

func (c *SecurityConfig) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutDurationMinutes) * time.Minute
}

func (c *SecurityConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}
