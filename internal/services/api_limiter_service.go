package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/BradenHooton/adminguard/pkg/logger"
)

// The limiter protects spend, not correctness: an unreadable counter store
// lets the call through
const rateLimitStorePolicy = models.FailOpen

// costEpsilon absorbs float rounding in the accumulated ledger total. It is
// applied to both sides of the crossing test, so a total that sums to just
// under an exact threshold still counts as reaching it.
const costEpsilon = 1e-9

// RateLimitWindowRepository stores fixed-window counters
type RateLimitWindowRepository interface {
	IncrementIfBelow(ctx context.Context, apiCallName string, windowStart time.Time, maxCalls int, ttl time.Duration) (int, bool, error)
	GetCount(ctx context.Context, apiCallName string, windowStart time.Time) (int, error)
}

// CostLedgerRepository accumulates estimated spend per day
type CostLedgerRepository interface {
	AddCost(ctx context.Context, date string, cost float64, apiCall string, expiresAt time.Time) (float64, error)
	Get(ctx context.Context, date string) (*models.DailyCostLedger, error)
}

// LimiterMetrics receives limiter observations
type LimiterMetrics interface {
	RecordDailyCost(apiCall string, total float64)
	RecordRateLimitDecision(apiCall, outcome string)
	RecordCostAlert()
}

// CostAlert describes a daily threshold crossing
type CostAlert struct {
	Date      string
	APICall   string
	Total     float64
	Threshold float64
}

// AlertNotifier delivers cost alerts
type AlertNotifier interface {
	NotifyCostThreshold(ctx context.Context, alert CostAlert) error
}

// APILimiterConfig holds the policy table and alert threshold
type APILimiterConfig struct {
	Policies           map[string]models.RateLimitPolicy
	DailyCostThreshold float64
}

// APILimiter caps calls to metered external APIs per fixed window and tracks
// their estimated daily cost
type APILimiter struct {
	windows     RateLimitWindowRepository
	ledger      CostLedgerRepository
	notifier    AlertNotifier
	metrics     LimiterMetrics
	auditLogger *logger.AuditLogger
	logger      *slog.Logger
	config      APILimiterConfig
	now         func() time.Time
}

// NewAPILimiter creates a new APILimiter. metrics may be nil.
func NewAPILimiter(windows RateLimitWindowRepository, ledger CostLedgerRepository, config APILimiterConfig, metrics LimiterMetrics, log *slog.Logger) *APILimiter {
	return &APILimiter{
		windows:     windows,
		ledger:      ledger,
		metrics:     metrics,
		auditLogger: logger.NewAuditLogger(log),
		logger:      log,
		config:      config,
		now:         time.Now,
	}
}

// SetNotifier attaches the alert channel. The notifier may itself call Do,
// so it is attached after construction.
func (l *APILimiter) SetNotifier(n AlertNotifier) {
	l.notifier = n
}

// CheckRateLimit decides whether one call to apiCallName may proceed and, if
// so, counts it against the current window
func (l *APILimiter) CheckRateLimit(ctx context.Context, apiCallName string) models.RateLimitDecision {
	decision := l.checkRateLimit(ctx, apiCallName)

	outcome := "allowed"
	if !decision.Allowed || decision.Reason != "" {
		outcome = decision.Reason
	}
	if l.metrics != nil {
		l.metrics.RecordRateLimitDecision(apiCallName, outcome)
	}
	return decision
}

func (l *APILimiter) checkRateLimit(ctx context.Context, apiCallName string) models.RateLimitDecision {
	policy, ok := l.config.Policies[apiCallName]
	if !ok {
		l.logger.WarnContext(ctx, "no rate limit policy configured for API call",
			slog.String("api_call", apiCallName))
		return models.RateLimitDecision{Allowed: true, Reason: models.ReasonUnconfigured}
	}

	if policy.MaxCalls == 0 {
		l.auditLogger.LogRateLimitRejected(ctx, apiCallName, models.ReasonBlockedByPolicy, policy.MaxCalls, policy.Window)
		return models.RateLimitDecision{Allowed: false, Reason: models.ReasonBlockedByPolicy, Remaining: intPtr(0)}
	}

	windowStart := policy.WindowStart(l.now())
	count, allowed, err := l.windows.IncrementIfBelow(ctx, apiCallName, windowStart, policy.MaxCalls, policy.Window)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit store unavailable",
			slog.String("api_call", apiCallName),
			slog.String("policy", rateLimitStorePolicy.String()),
			slog.Any("error", err))
		return models.RateLimitDecision{Allowed: rateLimitStorePolicy.Allows(), Reason: models.ReasonStoreUnavailable}
	}

	if !allowed {
		l.auditLogger.LogRateLimitRejected(ctx, apiCallName, models.ReasonRateLimitExceeded, policy.MaxCalls, policy.Window)
		return models.RateLimitDecision{Allowed: false, Reason: models.ReasonRateLimitExceeded, Remaining: intPtr(0)}
	}

	remaining := policy.MaxCalls - count
	if remaining < 0 {
		remaining = 0
	}
	return models.RateLimitDecision{Allowed: true, Remaining: &remaining}
}

// TrackCost adds the per-call cost of apiCallName to today's ledger, publishes
// the running total and raises an alert on the first crossing of the daily
// threshold. It never fails.
func (l *APILimiter) TrackCost(ctx context.Context, apiCallName string) {
	policy, ok := l.config.Policies[apiCallName]
	if !ok || policy.CostPerCall <= 0 {
		return
	}

	now := l.now().UTC()
	date := models.LedgerDate(now)

	total, err := l.ledger.AddCost(ctx, date, policy.CostPerCall, apiCallName, now.Add(models.CostLedgerRetention))
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to track API cost",
			slog.String("api_call", apiCallName),
			slog.Any("error", err))
		return
	}

	if l.metrics != nil {
		l.metrics.RecordDailyCost(apiCallName, total)
	}

	previous := total - policy.CostPerCall
	threshold := l.config.DailyCostThreshold
	if crossesThreshold(previous, total, threshold) {
		l.raiseAlert(ctx, CostAlert{Date: date, APICall: apiCallName, Total: total, Threshold: threshold})
	}
}

func crossesThreshold(previous, total, threshold float64) bool {
	return previous < threshold-costEpsilon && total >= threshold-costEpsilon
}

func (l *APILimiter) raiseAlert(ctx context.Context, alert CostAlert) {
	l.auditLogger.LogCostThreshold(ctx, alert.APICall, alert.Total, alert.Threshold)
	if l.metrics != nil {
		l.metrics.RecordCostAlert()
	}
	if l.notifier == nil {
		return
	}
	if err := l.notifier.NotifyCostThreshold(ctx, alert); err != nil {
		l.logger.ErrorContext(ctx, "failed to deliver cost alert",
			slog.String("api_call", alert.APICall),
			slog.Any("error", err))
	}
}

// Do runs fn if the limiter admits apiCallName and tracks its cost afterwards.
// The cost is tracked even when fn fails, since the call was made.
func (l *APILimiter) Do(ctx context.Context, apiCallName string, fn func(ctx context.Context) error) error {
	decision := l.CheckRateLimit(ctx, apiCallName)
	if !decision.Allowed {
		if decision.Reason == models.ReasonBlockedByPolicy {
			return fmt.Errorf("%s: %w", apiCallName, models.ErrBlockedByPolicy)
		}
		return fmt.Errorf("%s: %w", apiCallName, models.ErrRateLimitExceeded)
	}

	err := fn(ctx)
	l.TrackCost(ctx, apiCallName)
	return err
}

// PolicySummary is one row of the policy table as reported by Usage
type PolicySummary struct {
	APICall       string  `json:"api_call"`
	MaxCalls      int     `json:"max_calls"`
	WindowSeconds int64   `json:"window_seconds"`
	CostPerCall   float64 `json:"cost_per_call"`
	Description   string  `json:"description,omitempty"`
	CallsInWindow int     `json:"calls_in_window"`
}

// Usage is today's spend alongside the configured limits
type Usage struct {
	Date               string          `json:"date"`
	CumulativeCost     float64         `json:"cumulative_cost"`
	LastAPICall        string          `json:"last_api_call,omitempty"`
	LastUpdated        *time.Time      `json:"last_updated,omitempty"`
	DailyCostThreshold float64         `json:"daily_cost_threshold"`
	Policies           []PolicySummary `json:"policies"`
}

// Usage reports today's ledger and the policy table with the calls counted in
// each policy's current window. An unreadable window counter reports zero.
func (l *APILimiter) Usage(ctx context.Context) (*Usage, error) {
	now := l.now()
	date := models.LedgerDate(now)
	usage := &Usage{
		Date:               date,
		DailyCostThreshold: l.config.DailyCostThreshold,
		Policies:           make([]PolicySummary, 0, len(l.config.Policies)),
	}

	ledger, err := l.ledger.Get(ctx, date)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to read cost ledger: %w", err)
	default:
		usage.CumulativeCost = ledger.CumulativeCost
		usage.LastAPICall = ledger.LastAPICall
		updated := ledger.LastUpdated
		usage.LastUpdated = &updated
	}

	for name, p := range l.config.Policies {
		summary := PolicySummary{
			APICall:       name,
			MaxCalls:      p.MaxCalls,
			WindowSeconds: int64(p.Window / time.Second),
			CostPerCall:   p.CostPerCall,
			Description:   p.Description,
		}
		if p.MaxCalls > 0 {
			count, err := l.windows.GetCount(ctx, name, p.WindowStart(now))
			if err != nil {
				l.logger.WarnContext(ctx, "failed to read rate limit window",
					slog.String("api_call", name),
					slog.Any("error", err))
			}
			summary.CallsInWindow = count
		}
		usage.Policies = append(usage.Policies, summary)
	}
	sort.Slice(usage.Policies, func(i, j int) bool {
		return usage.Policies[i].APICall < usage.Policies[j].APICall
	})

	return usage, nil
}

func intPtr(v int) *int {
	return &v
}
