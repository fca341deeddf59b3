package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/models"
)

// ListingFetcher interface for dependency injection
type ListingFetcher interface {
	FetchListings(ctx context.Context, agencyID int64, pageSize int) ([]models.Listing, error)
}

// StatisticsFetcher reports absent statistics as false rather than an error.
type StatisticsFetcher interface {
	Fetch(ctx context.Context, listingID int64) (*models.ListingStatistics, bool)
}

// RecordUpserter interface for dependency injection
type RecordUpserter interface {
	Upsert(ctx context.Context, listingID string, fields models.Fields) error
}

type ListingProcessor struct {
	listings   ListingFetcher
	statistics StatisticsFetcher
	upserter   RecordUpserter
	logger     *zap.Logger
}

func NewListingProcessor(listings ListingFetcher, statistics StatisticsFetcher, upserter RecordUpserter, logger *zap.Logger) *ListingProcessor {
	return &ListingProcessor{
		listings:   listings,
		statistics: statistics,
		upserter:   upserter,
		logger:     logger.With(zap.String("component", "listing_processor")),
	}
}

// ProcessAccount syncs one page of an account's listings and returns how
// many were upserted. Only the page fetch itself returns an error; failures
// on a single listing are logged and skipped.
func (p *ListingProcessor) ProcessAccount(ctx context.Context, account models.SourceAccount, pageSize int) (int, error) {
	listings, err := p.listings.FetchListings(ctx, account.ID, pageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch listings for %s: %w", account.Name, err)
	}

	log := p.logger.With(zap.String("account", account.Name))
	log.Info("Retrieved listings", zap.Int("count", len(listings)))

	processed := 0
	for _, listing := range listings {
		// absent statistics come back nil and BuildFields zeroes the counters
		stats, _ := p.statistics.Fetch(ctx, listing.ID)

		key := strconv.FormatInt(listing.ID, 10)
		if err := p.upserter.Upsert(ctx, key, BuildFields(listing, stats)); err != nil {
			log.Error("Failed to sync listing", zap.String("listing_id", key), zap.Error(err))
			continue
		}

		processed++
		log.Debug("Synced listing", zap.String("listing_id", key))
	}

	log.Info("Processed account", zap.Int("processed", processed), zap.Int("fetched", len(listings)))
	return processed, nil
}
