package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/BradenHooton/adminguard/pkg/auth"
	"github.com/BradenHooton/adminguard/pkg/logger"
)

// Session reads guard the authenticated area, so a store error denies access
const sessionLookupPolicy = models.FailClosed

// SessionRepository defines the session store operations
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, sessionID string) (*models.Session, error)
	UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error
	Delete(ctx context.Context, sessionID string) error
}

// AuditRecorder records gateway security events
type AuditRecorder interface {
	Record(ctx context.Context, actionType models.ActionType, details models.AuditMetadata, clientIP, userAgent string)
}

// SessionService issues and validates IP-bound admin sessions
type SessionService struct {
	repo          SessionRepository
	audit         AuditRecorder
	logger        *slog.Logger
	now           func() time.Time
	generateToken func() (string, error)
}

// NewSessionService creates a new SessionService
func NewSessionService(repo SessionRepository, audit AuditRecorder, logger *slog.Logger) *SessionService {
	return &SessionService{
		repo:          repo,
		audit:         audit,
		logger:        logger,
		now:           time.Now,
		generateToken: auth.GenerateToken,
	}
}

// Create issues a new session bound to clientIP. The session is persisted
// before Create returns.
func (s *SessionService) Create(ctx context.Context, clientIP, userAgent string, timeout time.Duration) (*models.Session, error) {
	token, err := s.generateToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSessionCreationFailed, err)
	}

	now := s.now().UTC()
	session := &models.Session{
		SessionID:    token,
		CreatedAt:    now,
		UserIP:       clientIP,
		UserAgent:    userAgent,
		ExpiresAt:    now.Add(timeout),
		LastActivity: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrSessionCreationFailed, err)
	}

	s.logger.InfoContext(ctx, "session created",
		slog.String("session", logger.TokenFingerprint(token)),
		slog.Time("expires_at", session.ExpiresAt))

	return session, nil
}

// Validate reports whether sessionID names a live session issued to clientIP.
// Expired sessions are deleted. A session presented from another IP is
// deleted and audited; it is never rebound.
func (s *SessionService) Validate(ctx context.Context, sessionID, clientIP, userAgent string) bool {
	if sessionID == "" {
		return false
	}

	session, err := s.repo.GetByID(ctx, sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "session lookup failed",
			slog.String("policy", sessionLookupPolicy.String()),
			slog.Any("error", err))
		return sessionLookupPolicy.Allows()
	}

	now := s.now()
	fingerprint := logger.TokenFingerprint(sessionID)

	if session.IsExpired(now) {
		if err := s.repo.Delete(ctx, sessionID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired session",
				slog.String("session", fingerprint),
				slog.Any("error", err))
		}
		s.audit.Record(ctx, models.ActionSessionExpired, models.AuditMetadata{
			"session":    fingerprint,
			"expired_at": session.ExpiresAt.UTC().Format(time.RFC3339),
		}, clientIP, userAgent)
		return false
	}

	if session.UserIP != clientIP {
		s.audit.Record(ctx, models.ActionSessionIPMismatch, models.AuditMetadata{
			"session":    fingerprint,
			"session_ip": session.UserIP,
		}, clientIP, userAgent)
		if err := s.repo.Delete(ctx, sessionID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete mismatched session",
				slog.String("session", fingerprint),
				slog.Any("error", err))
		}
		return false
	}

	if err := s.repo.UpdateLastActivity(ctx, sessionID, now.UTC()); err != nil {
		s.logger.WarnContext(ctx, "failed to update session activity",
			slog.String("session", fingerprint),
			slog.Any("error", err))
	}

	return true
}

// Invalidate deletes a session. Unknown ids are not an error.
func (s *SessionService) Invalidate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}
