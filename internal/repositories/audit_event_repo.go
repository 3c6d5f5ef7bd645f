package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/adminguard/internal/database"
	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEventRepository handles the append-only audit trail
type AuditEventRepository struct {
	pool *pgxpool.Pool
}

// NewAuditEventRepository creates a new AuditEventRepository
func NewAuditEventRepository(db *database.DB) *AuditEventRepository {
	return &AuditEventRepository{pool: db.Pool}
}

func scanAuditEventRow(row rowScanner) (*models.AuditEvent, error) {
	var e models.AuditEvent
	err := row.Scan(&e.ActionID, &e.Timestamp, &e.ActionType, &e.UserIP, &e.UserAgent, &e.Details, &e.ExpiresAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &e, nil
}

func scanAuditEventRows(rows pgx.Rows) ([]*models.AuditEvent, error) {
	defer rows.Close()

	events := make([]*models.AuditEvent, 0)
	for rows.Next() {
		e, err := scanAuditEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit event rows: %w", err)
	}
	return events, nil
}

// Create appends one audit event
func (r *AuditEventRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (action_id, timestamp, action_type, user_ip, user_agent, details, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ActionID,
		event.Timestamp,
		string(event.ActionType),
		event.UserIP,
		event.UserAgent,
		event.Details,
		event.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", database.MapPostgresError(err))
	}
	return nil
}

// CountByTypeAndIPSince counts events of one type for an IP strictly after since
func (r *AuditEventRepository) CountByTypeAndIPSince(ctx context.Context, ip string, actionType models.ActionType, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM audit_events
		WHERE user_ip = $1 AND action_type = $2 AND timestamp > $3 AND expires_at > CURRENT_TIMESTAMP
	`

	var count int
	err := r.pool.QueryRow(ctx, query, ip, string(actionType), since).Scan(&count)
	return count, err
}

// ListByIP returns the most recent events for an IP, newest first
func (r *AuditEventRepository) ListByIP(ctx context.Context, ip string, limit int) ([]*models.AuditEvent, error) {
	query := `
		SELECT action_id, timestamp, action_type, user_ip, user_agent, details, expires_at
		FROM audit_events
		WHERE user_ip = $1 AND expires_at > CURRENT_TIMESTAMP
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, ip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return scanAuditEventRows(rows)
}

// DeleteExpired removes events past their retention
func (r *AuditEventRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_events WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
