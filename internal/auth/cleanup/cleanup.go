package cleanup

import (
	"context"
	"time"

	"github.com/aldabergenov/auth-service/internal/common/constants"
	"github.com/aldabergenov/auth-service/internal/common/logger"
	"github.com/aldabergenov/auth-service/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartRefreshTokenCleanup sweeps expired refresh token rows on an hourly
// tick until ctx is cancelled. Rows past expires_at can no longer pass
// the refresh gate, so removing them only reclaims space.
func StartRefreshTokenCleanup(ctx context.Context, repo ExpiredDeleter, log *logger.Logger) {
	ticker := time.NewTicker(constants.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Errorf("refresh token cleanup failed: %v", err)
				continue
			}
			if deleted > 0 {
				metrics.RefreshTokensCleanupDeleted.Add(float64(deleted))
				log.Infof("refresh token cleanup: deleted %d expired tokens", deleted)
			}
		}
	}
}
