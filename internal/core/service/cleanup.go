package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/rl1809/pantry-sync/internal/port"
)

// CleanupWorker retries identity deletion for accounts whose inventory
// scope is already gone.
type CleanupWorker struct {
	identity        port.IdentityDeleter
	logger          *zap.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

func NewCleanupWorker(identity port.IdentityDeleter, logger *zap.Logger, maxRetries uint64, initialInterval time.Duration) *CleanupWorker {
	return &CleanupWorker{
		identity:        identity,
		logger:          logger,
		maxRetries:      maxRetries,
		initialInterval: initialInterval,
	}
}

// Run drains queue until it is closed.
func (w *CleanupWorker) Run(ctx context.Context, id int, queue <-chan string) {
	for userID := range queue {
		if err := w.deleteWithRetry(ctx, userID); err != nil {
			w.logger.Error("CRITICAL identity cleanup failed",
				zap.Int("worker", id),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		w.logger.Info("identity cleanup done", zap.Int("worker", id), zap.String("user_id", userID))
	}
}

func (w *CleanupWorker) deleteWithRetry(ctx context.Context, userID string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.initialInterval

	attempt := 0
	operation := func() error {
		attempt++
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := w.identity.DeleteIdentity(opCtx, userID)
		if err != nil {
			w.logger.Warn("identity cleanup attempt failed",
				zap.String("user_id", userID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, w.maxRetries), ctx))
}
