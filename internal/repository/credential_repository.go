package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vipul43/listing-sync/internal/models"
)

// CredentialRepository stores the credential as a single row (id = models.CredentialSlotID).
type CredentialRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCredentialRepository(db *gorm.DB, logger *zap.Logger) *CredentialRepository {
	return &CredentialRepository{
		db:     db,
		logger: logger.With(zap.String("component", "credential_repository")),
	}
}

// Save upserts the credential slot in one statement.
func (r *CredentialRepository) Save(ctx context.Context, cred models.Credential) error {
	cred.ID = models.CredentialSlotID
	cred.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "updated_at"}),
		}).
		Create(&cred)
	if result.Error != nil {
		return fmt.Errorf("failed to save credential: %w", result.Error)
	}

	r.logger.Info("Credential saved", zap.Bool("has_refresh_token", cred.HasRefreshToken()))
	return nil
}

// Load returns the stored credential, or absent.
func (r *CredentialRepository) Load(ctx context.Context) (*models.Credential, bool) {
	var cred models.Credential
	result := r.db.WithContext(ctx).First(&cred, "id = ?", models.CredentialSlotID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			r.logger.Warn("No stored credential, authentication required")
		} else {
			r.logger.Error("Failed to load credential", zap.Error(result.Error))
		}
		return nil, false
	}

	if !cred.HasAccessToken() {
		r.logger.Error("Stored credential is missing access token")
		return nil, false
	}
	return &cred, true
}
