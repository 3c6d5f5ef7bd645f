package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/adminguard/internal/models"
)

// Store-error decisions. A storage outage must not lock the administrator
// out, but it must not let an MFA code through without a preceding password
// check either.
const (
	lockoutCheckPolicy = models.FailOpen
	pendingMFAPolicy   = models.FailClosed
)

// pendingMFAScanLimit bounds how many recent events HasPendingMFA inspects
const pendingMFAScanLimit = 50

// BruteForceGuard derives lockout state from the audit trail. It keeps no
// counters of its own.
type BruteForceGuard struct {
	repo   AuditEventRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewBruteForceGuard creates a new BruteForceGuard
func NewBruteForceGuard(repo AuditEventRepository, logger *slog.Logger) *BruteForceGuard {
	return &BruteForceGuard{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// IsLockedOut reports whether clientIP has at least MaxLoginAttempts
// LOGIN_FAILED events within the lockout duration.
func (g *BruteForceGuard) IsLockedOut(ctx context.Context, clientIP string, cfg *models.SecurityConfig) bool {
	cutoff := g.now().Add(-cfg.LockoutDuration())

	count, err := g.repo.CountByTypeAndIPSince(ctx, clientIP, models.ActionLoginFailed, cutoff)
	if err != nil {
		g.logger.WarnContext(ctx, "lockout check failed",
			slog.String("policy", lockoutCheckPolicy.String()),
			slog.Any("error", err))
		return !lockoutCheckPolicy.Allows()
	}

	return count >= cfg.MaxLoginAttempts
}

// IsMFALockedOut reports whether clientIP has at least MaxLoginAttempts
// MFA_FAILED events within the lockout duration.
func (g *BruteForceGuard) IsMFALockedOut(ctx context.Context, clientIP string, cfg *models.SecurityConfig) bool {
	cutoff := g.now().Add(-cfg.LockoutDuration())

	count, err := g.repo.CountByTypeAndIPSince(ctx, clientIP, models.ActionMFAFailed, cutoff)
	if err != nil {
		g.logger.WarnContext(ctx, "MFA lockout check failed",
			slog.String("policy", lockoutCheckPolicy.String()),
			slog.Any("error", err))
		return !lockoutCheckPolicy.Allows()
	}

	return count >= cfg.MaxLoginAttempts
}

// HasPendingMFA reports whether clientIP passed the password step within
// window and has not completed MFA since. A successful MFA step consumes the
// pending login.
func (g *BruteForceGuard) HasPendingMFA(ctx context.Context, clientIP string, window time.Duration) bool {
	cutoff := g.now().Add(-window)

	events, err := g.repo.ListByIP(ctx, clientIP, pendingMFAScanLimit)
	if err != nil {
		g.logger.WarnContext(ctx, "pending MFA lookup failed",
			slog.String("policy", pendingMFAPolicy.String()),
			slog.Any("error", err))
		return pendingMFAPolicy.Allows()
	}

	for _, e := range events {
		if e.Timestamp.Before(cutoff) {
			return false
		}
		switch e.ActionType {
		case models.ActionMFASuccess:
			return false
		case models.ActionLoginSuccessPendingMFA:
			return true
		}
	}
	return false
}
