package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/adminguard/internal/database"
	"github.com/jackc/pgx/v5"
)

// RateLimitWindowRepository stores fixed-window call counters in Postgres
type RateLimitWindowRepository struct {
	db *database.DB
}

// NewRateLimitWindowRepository creates a new RateLimitWindowRepository
func NewRateLimitWindowRepository(db *database.DB) *RateLimitWindowRepository {
	return &RateLimitWindowRepository{db: db}
}

// IncrementIfBelow increments the counter for (apiCallName, windowStart) unless
// it already holds maxCalls. It returns the resulting count and whether the
// increment happened. The conditional upsert makes the check and the write a
// single statement, so concurrent callers cannot push the count past maxCalls.
func (r *RateLimitWindowRepository) IncrementIfBelow(ctx context.Context, apiCallName string, windowStart time.Time, maxCalls int, ttl time.Duration) (int, bool, error) {
	query := `
		INSERT INTO rate_limit_windows (api_call_name, window_start, count, expires_at)
		VALUES ($1, $2, 1, $4)
		ON CONFLICT (api_call_name, window_start) DO UPDATE
		SET count = rate_limit_windows.count + 1
		WHERE rate_limit_windows.count < $3
		RETURNING count
	`

	expiresAt := windowStart.Add(ttl)

	var count int
	err := r.db.Pool.QueryRow(ctx, query, apiCallName, windowStart.UnixMilli(), maxCalls, expiresAt).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		// The row exists and is full: the guarded update matched nothing
		return maxCalls, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment rate limit window: %w", err)
	}
	return count, true, nil
}

// GetCount returns the current count for a window, zero if none exists
func (r *RateLimitWindowRepository) GetCount(ctx context.Context, apiCallName string, windowStart time.Time) (int, error) {
	query := `
		SELECT count FROM rate_limit_windows
		WHERE api_call_name = $1 AND window_start = $2 AND expires_at > CURRENT_TIMESTAMP
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, apiCallName, windowStart.UnixMilli()).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// DeleteExpired removes windows that have closed
func (r *RateLimitWindowRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM rate_limit_windows WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
