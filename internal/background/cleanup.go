package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is used when a non-positive interval is supplied.
const DefaultCleanupInterval = time.Hour

// RetentionStore deletes audit rows that are no longer needed
type RetentionStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteLoginFailuresBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager periodically purges expired sessions and aged login failures.
// It never runs on the login path.
type CleanupManager struct {
	store            RetentionStore
	logger           *slog.Logger
	interval         time.Duration
	failureRetention time.Duration
	now              func() time.Time
	stopCh           chan struct{}
	stopOnce         sync.Once
}

// NewCleanupManager creates a new cleanup manager. A non-positive interval is
// replaced by DefaultCleanupInterval; a non-positive failureRetention keeps
// failure rows forever.
func NewCleanupManager(store RetentionStore, logger *slog.Logger, interval, failureRetention time.Duration) *CleanupManager {
	if interval <= 0 {
		logger.Warn("invalid cleanup interval, using default",
			slog.Duration("interval", interval),
			slog.Duration("default", DefaultCleanupInterval))
		interval = DefaultCleanupInterval
	}

	return &CleanupManager{
		store:            store,
		logger:           logger,
		interval:         interval,
		failureRetention: failureRetention,
		now:              time.Now,
		stopCh:           make(chan struct{}),
	}
}

// Start runs a cleanup immediately and then every interval until Stop or ctx is done.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.now()

	sessions, err := cm.store.DeleteExpiredSessions(cleanupCtx, now)
	if err != nil {
		cm.logger.Error("failed to delete expired sessions", slog.Any("error", err))
	} else if sessions > 0 {
		cm.logger.Info("expired sessions deleted", slog.Int64("rows_deleted", sessions))
	}

	if cm.failureRetention <= 0 {
		return
	}

	failures, err := cm.store.DeleteLoginFailuresBefore(cleanupCtx, now.Add(-cm.failureRetention))
	if err != nil {
		cm.logger.Error("failed to delete aged login failures", slog.Any("error", err))
		return
	}
	if failures > 0 {
		cm.logger.Info("aged login failures deleted", slog.Int64("rows_deleted", failures))
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
