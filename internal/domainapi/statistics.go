package domainapi

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/models"
)

// StatisticsFetcher loads the engagement counters of one listing.
// Statistics are best effort: every failure is logged and reported as absent.
type StatisticsFetcher struct {
	client *Client
	logger *zap.Logger
}

func NewStatisticsFetcher(client *Client, logger *zap.Logger) *StatisticsFetcher {
	return &StatisticsFetcher{
		client: client,
		logger: logger.With(zap.String("component", "statistics_fetcher")),
	}
}

func (f *StatisticsFetcher) Fetch(ctx context.Context, listingID int64) (*models.ListingStatistics, bool) {
	if listingID == 0 {
		f.logger.Warn("Listing ID is required to fetch statistics")
		return nil, false
	}

	var resp models.StatisticsResponse
	if err := f.client.Get(ctx, fmt.Sprintf("/listings/%d/statistics", listingID), &resp); err != nil {
		f.logger.Warn("Failed to fetch listing statistics",
			zap.Int64("listing_id", listingID), zap.Error(err))
		return nil, false
	}
	if resp.Summary == nil {
		f.logger.Warn("Statistics response has no summary", zap.Int64("listing_id", listingID))
		return nil, false
	}

	f.logger.Debug("Fetched listing statistics", zap.Int64("listing_id", listingID))
	return resp.Summary, true
}
