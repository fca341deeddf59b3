package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/models"
)

// RecordStore is the external tabular store, addressed by the record key.
type RecordStore interface {
	FindByKey(ctx context.Context, key string) (id string, found bool, err error)
	Create(ctx context.Context, key string, fields models.Fields) error
	Update(ctx context.Context, id string, fields models.Fields) error
}

// Upserter writes at most one record per listing ID. Two concurrent upserts
// for the same ID can both miss the lookup; callers must not issue them.
type Upserter struct {
	store  RecordStore
	logger *zap.Logger
}

func NewUpserter(store RecordStore, logger *zap.Logger) *Upserter {
	return &Upserter{
		store:  store,
		logger: logger.With(zap.String("component", "record_upserter")),
	}
}

func (u *Upserter) Upsert(ctx context.Context, listingID string, fields models.Fields) error {
	id, found, err := u.store.FindByKey(ctx, listingID)
	if err != nil {
		return fmt.Errorf("failed to look up record %s: %w", listingID, err)
	}

	if found {
		u.logger.Debug("Updating record", zap.String("listing_id", listingID), zap.String("record_id", id))
		if err := u.store.Update(ctx, id, fields); err != nil {
			return fmt.Errorf("failed to update record %s: %w", listingID, err)
		}
		return nil
	}

	u.logger.Debug("Creating record", zap.String("listing_id", listingID))
	if err := u.store.Create(ctx, listingID, fields); err != nil {
		return fmt.Errorf("failed to create record %s: %w", listingID, err)
	}
	return nil
}
