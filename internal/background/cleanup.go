package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper deletes rows whose TTL has passed
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically removes expired sessions, audit events,
// rate-limit windows and cost ledgers from stores without native TTL
type CleanupManager struct {
	sweepers map[string]Sweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. sweepers is keyed by a
// name used in log lines.
func NewCleanupManager(sweepers map[string]Sweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		sweepers: sweepers,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. It blocks until Stop is called or
// ctx is done.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce sweeps every store once and returns the rows deleted per store.
// A failing store does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) map[string]int64 {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted := make(map[string]int64, len(cm.sweepers))
	for name, sweeper := range cm.sweepers {
		rows, err := sweeper.DeleteExpired(cleanupCtx)
		if err != nil {
			cm.logger.Error("failed to delete expired rows",
				slog.String("store", name),
				slog.Any("error", err))
			continue
		}
		deleted[name] = rows
		if rows > 0 {
			cm.logger.Info("expired rows deleted",
				slog.String("store", name),
				slog.Int64("rows_deleted", rows))
		}
	}
	return deleted
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
