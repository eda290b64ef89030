package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tokenforge/auth-service/internal/domain/auth/repo"
)

// PruneExpired deletes refresh records that expired before now and blocks
// until ctx is done, repeating every interval.
func PruneExpired(ctx context.Context, tokens repo.RefreshTokenRepo, interval time.Duration, log *zap.Logger) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := tokens.DeleteExpired(ctx, time.Now())
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("prune expired refresh tokens", zap.Error(err))
		case n > 0:
			log.Info("pruned expired refresh tokens", zap.Int64("count", n))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
