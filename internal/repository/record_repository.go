package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vipul43/listing-sync/internal/models"
)

var ErrRecordNotFound = errors.New("record not found")

// RecordRepository mirrors sync records into Postgres, one row per listing.
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// FindByKey looks up a record by listing ID
func (r *RecordRepository) FindByKey(ctx context.Context, listingID string) (string, bool, error) {
	var record models.SyncRecord
	result := r.db.WithContext(ctx).
		Select("id").
		Where("listing_id = ?", listingID).
		Limit(1).
		Find(&record)
	if result.Error != nil {
		return "", false, fmt.Errorf("failed to find record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", false, nil
	}
	return record.ID, true, nil
}

// Create inserts a new record for the listing
func (r *RecordRepository) Create(ctx context.Context, listingID string, fields models.Fields) error {
	record := models.SyncRecord{
		ID:        uuid.New().String(),
		ListingID: listingID,
		Fields:    models.JSONB(fields),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// Update replaces the fields of an existing record
func (r *RecordRepository) Update(ctx context.Context, id string, fields models.Fields) error {
	result := r.db.WithContext(ctx).Model(&models.SyncRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"fields":     models.JSONB(fields),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Count returns the number of mirrored records
func (r *RecordRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.SyncRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}
