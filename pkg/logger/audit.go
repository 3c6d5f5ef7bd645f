package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	ActionID  string
	EventType string
	IPAddress string
	UserAgent string
	Success   bool
	Details   map[string]interface{}
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogSecurityEvent logs a gateway security event
func (al *AuditLogger) LogSecurityEvent(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ActionID != "" {
		attrs = append(attrs, slog.String("action_id", event.ActionID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	for key, val := range event.Details {
		attrs = append(attrs, slog.String("detail_"+key, fmt.Sprint(val)))
	}

	if event.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
	}
}

// LogCostThreshold logs a daily cost threshold crossing
func (al *AuditLogger) LogCostThreshold(ctx context.Context, apiCall string, total, threshold float64) {
	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit",
		slog.String("audit_type", "cost"),
		slog.String("event_type", "cost_threshold_exceeded"),
		slog.String("api_call", apiCall),
		slog.Float64("daily_total", total),
		slog.Float64("threshold", threshold),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogRateLimitRejected logs a protected API call refused by the limiter
func (al *AuditLogger) LogRateLimitRejected(ctx context.Context, apiCall, reason string, maxCalls int, window time.Duration) {
	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit",
		slog.String("audit_type", "rate_limit"),
		slog.String("event_type", "api_call_rejected"),
		slog.String("api_call", apiCall),
		slog.String("reason", reason),
		slog.Int("max_calls", maxCalls),
		slog.Duration("window", window),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
