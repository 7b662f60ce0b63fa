package app

import (
	"context"
	"time"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
)

// startRateScheduler refreshes the discount-rate dataset on a fixed interval.
// Each tick only re-fetches when the dataset has passed its max age.
func startRateScheduler(ctx context.Context, rateService interfaces.RateService, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Rate scheduler: stopped")
			return
		case <-ticker.C:
			start := time.Now()
			refreshed, err := rateService.RefreshIfStale(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("Rate scheduler: refresh failed")
				continue
			}
			if refreshed {
				logger.Info().
					Dur("elapsed", time.Since(start)).
					Msg("Rate scheduler: dataset refreshed")
			}
		}
	}
}
