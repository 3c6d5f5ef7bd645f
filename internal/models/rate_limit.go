package models

import "time"

// RateLimitPolicy bounds calls to one named external API.
// MaxCalls == 0 blocks the call outright.
type RateLimitPolicy struct {
	MaxCalls    int           `json:"max_calls"`
	Window      time.Duration `json:"window"`
	CostPerCall float64       `json:"cost_per_call"`
	Description string        `json:"description,omitempty"`
}

// WindowStart returns the start of the fixed window containing now.
func (p RateLimitPolicy) WindowStart(now time.Time) time.Time {
	size := p.Window.Milliseconds()
	if size <= 0 {
		return now
	}
	ms := now.UnixMilli()
	return time.UnixMilli((ms / size) * size).UTC()
}

// RateLimitWindow is the counter for one (api call, window start) key.
type RateLimitWindow struct {
	APICallName string    `db:"api_call_name"`
	WindowStart time.Time `db:"window_start"`
	Count       int       `db:"count"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// RateLimitDecision is the outcome of a rate-limit check.
type RateLimitDecision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

// Reasons reported in RateLimitDecision.
const (
	ReasonRateLimitExceeded = "rate_limit_exceeded"
	ReasonBlockedByPolicy   = "blocked_by_policy"
	ReasonUnconfigured      = "unconfigured_api_call"
	ReasonStoreUnavailable  = "store_unavailable"
)

// CostLedgerRetention is the TTL of a daily cost ledger.
const CostLedgerRetention = 7 * 24 * time.Hour

// DailyCostLedger accumulates estimated spend for one calendar day (UTC).
type DailyCostLedger struct {
	Date           string    `db:"date" json:"date"`
	CumulativeCost float64   `db:"cumulative_cost" json:"cumulative_cost"`
	LastUpdated    time.Time `db:"last_updated" json:"last_updated"`
	LastAPICall    string    `db:"last_api_call" json:"last_api_call"`
	ExpiresAt      time.Time `db:"expires_at" json:"expires_at"`
}

// LedgerDate formats the ledger key for t.
func LedgerDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
