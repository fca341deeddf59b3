package watcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/auth"
)

// runRefresh keeps the refresh token in use. Without a stored refresh token
// there is nothing to do until the operator authenticates.
func (w *Watcher) runRefresh(ctx context.Context) {
	if _, err := w.refresher.Refresh(ctx); err != nil {
		if errors.Is(err, auth.ErrNoRefreshToken) {
			w.logger.Warn("Skipping scheduled token refresh, no refresh token stored")
			return
		}
		w.logger.Error("Scheduled token refresh failed", zap.Error(err))
		return
	}
	w.logger.Info("Scheduled token refresh completed")
}
