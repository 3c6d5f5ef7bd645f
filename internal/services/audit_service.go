package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/BradenHooton/adminguard/pkg/logger"
	"github.com/google/uuid"
)

// AuditEventRepository defines the audit trail operations the gateway needs
type AuditEventRepository interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	CountByTypeAndIPSince(ctx context.Context, ip string, actionType models.ActionType, since time.Time) (int, error)
	ListByIP(ctx context.Context, ip string, limit int) ([]*models.AuditEvent, error)
}

// AuthEventMetrics counts audited events
type AuthEventMetrics interface {
	RecordAuthEvent(actionType string)
}

// AuditService records security events with a dual-write: a structured log
// line and a durable audit row
type AuditService struct {
	repo        AuditEventRepository
	auditLogger *logger.AuditLogger
	logger      *slog.Logger
	metrics     AuthEventMetrics
	retention   time.Duration
	now         func() time.Time
}

// NewAuditService creates a new AuditService. metrics may be nil.
func NewAuditService(repo AuditEventRepository, log *slog.Logger, metrics AuthEventMetrics) *AuditService {
	return &AuditService{
		repo:        repo,
		auditLogger: logger.NewAuditLogger(log),
		logger:      log,
		metrics:     metrics,
		retention:   models.AuditRetention,
		now:         time.Now,
	}
}

// Record appends one audit event. It never fails: a storage error is logged
// and swallowed so the authentication flow does not depend on audit writes.
func (s *AuditService) Record(ctx context.Context, actionType models.ActionType, details models.AuditMetadata, clientIP, userAgent string) {
	if !actionType.Valid() {
		s.logger.WarnContext(ctx, "recording unknown audit action type", slog.String("action_type", string(actionType)))
	}

	now := s.now().UTC()
	event := &models.AuditEvent{
		ActionID:   uuid.NewString(),
		Timestamp:  now,
		ActionType: actionType,
		UserIP:     clientIP,
		UserAgent:  userAgent,
		Details:    details,
		ExpiresAt:  now.Add(s.retention),
	}

	s.auditLogger.LogSecurityEvent(ctx, logger.AuditEvent{
		ActionID:  event.ActionID,
		EventType: string(actionType),
		IPAddress: clientIP,
		UserAgent: userAgent,
		Success:   !actionType.IsFailure(),
		Details:   details,
	})

	if s.metrics != nil {
		s.metrics.RecordAuthEvent(string(actionType))
	}

	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit event",
			slog.String("action_id", event.ActionID),
			slog.String("action_type", string(actionType)),
			slog.Any("error", err))
	}
}
