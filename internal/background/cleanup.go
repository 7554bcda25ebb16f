package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/loginguard/internal/repositories"
)

// CleanupManager periodically removes expired attempt records from stores
// that do not expire keys on their own (postgres, sqlite, memory)
type CleanupManager struct {
	sweeper  repositories.Sweeper
	name     string
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	sweeper repositories.Sweeper,
	name string,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sweeper:  sweeper,
		name:     name,
		logger:   logger.With(slog.String("store", name)),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. It blocks until Stop is called or ctx is done.
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

// RunOnce sweeps expired records and returns how many were removed
func (cm *CleanupManager) RunOnce(ctx context.Context) int64 {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := cm.sweeper.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to sweep expired attempt records", slog.Any("error", err))
		return 0
	}

	if removed > 0 {
		cm.logger.Info("expired attempt records swept", slog.Int64("removed", removed))
	}
	return removed
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
