package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/adminguard/internal/database"
	"github.com/BradenHooton/adminguard/internal/models"
)

// SessionRepository handles database operations for admin sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSessionRow(row rowScanner) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.SessionID, &s.CreatedAt, &s.UserIP, &s.UserAgent, &s.ExpiresAt, &s.LastActivity)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

// Create persists a new session. The write is synchronous so the cookie is
// never handed out for a session that does not exist yet.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (session_id, created_at, user_ip, user_agent, expires_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		session.SessionID,
		session.CreatedAt,
		session.UserIP,
		session.UserAgent,
		session.ExpiresAt,
		session.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", database.MapPostgresError(err))
	}
	return nil
}

// GetByID looks a session up by primary key. Expired rows are returned so the
// caller can observe and remove them.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT session_id, created_at, user_ip, user_agent, expires_at, last_activity
		FROM sessions
		WHERE session_id = $1
	`

	return scanSessionRow(r.db.Pool.QueryRow(ctx, query, sessionID))
}

// UpdateLastActivity records a successful validation
func (r *SessionRepository) UpdateLastActivity(ctx context.Context, sessionID string, at time.Time) error {
	query := `UPDATE sessions SET last_activity = $2 WHERE session_id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, sessionID, at)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	return database.MapPostgresError(err)
}

// DeleteExpired removes sessions past their expiry
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
