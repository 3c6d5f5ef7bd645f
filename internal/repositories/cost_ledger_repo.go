package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/adminguard/internal/database"
	"github.com/BradenHooton/adminguard/internal/models"
)

// CostLedgerRepository accumulates estimated API spend per UTC day
type CostLedgerRepository struct {
	db *database.DB
}

// NewCostLedgerRepository creates a new CostLedgerRepository
func NewCostLedgerRepository(db *database.DB) *CostLedgerRepository {
	return &CostLedgerRepository{db: db}
}

// AddCost adds cost to the ledger for date and returns the new cumulative total.
// The upsert is atomic, so new total minus cost is the exact previous total.
func (r *CostLedgerRepository) AddCost(ctx context.Context, date string, cost float64, apiCall string, expiresAt time.Time) (float64, error) {
	query := `
		INSERT INTO daily_costs (date, cumulative_cost, last_updated, last_api_call, expires_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP, $3, $4)
		ON CONFLICT (date) DO UPDATE
		SET cumulative_cost = daily_costs.cumulative_cost + EXCLUDED.cumulative_cost,
		    last_updated = EXCLUDED.last_updated,
		    last_api_call = EXCLUDED.last_api_call
		RETURNING cumulative_cost
	`

	var total float64
	if err := r.db.Pool.QueryRow(ctx, query, date, cost, apiCall, expiresAt).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to add cost: %w", err)
	}
	return total, nil
}

// Get returns the ledger for date, models.ErrNotFound if nothing was spent
func (r *CostLedgerRepository) Get(ctx context.Context, date string) (*models.DailyCostLedger, error) {
	query := `
		SELECT date, cumulative_cost, last_updated, last_api_call, expires_at
		FROM daily_costs
		WHERE date = $1 AND expires_at > CURRENT_TIMESTAMP
	`

	var l models.DailyCostLedger
	err := r.db.Pool.QueryRow(ctx, query, date).Scan(&l.Date, &l.CumulativeCost, &l.LastUpdated, &l.LastAPICall, &l.ExpiresAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &l, nil
}

// DeleteExpired removes ledgers past their retention
func (r *CostLedgerRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM daily_costs WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
