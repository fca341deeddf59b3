package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Tabular store column names. Statistics columns carry the "(Domain)" suffix
// the store schema was created with.
const (
	FieldListingID              = "Listing ID"
	FieldPropertyAddress        = "Property Address"
	FieldSuburb                 = "Suburb"
	FieldBathrooms              = "Bathrooms"
	FieldBedrooms               = "Bedrooms"
	FieldCarspaces              = "Carspaces"
	FieldDateUpdated            = "Date Updated"
	FieldDateListed             = "Date Listed"
	FieldDescription            = "Description"
	FieldHeading                = "Heading"
	FieldPriceDisplay           = "Price Display"
	FieldDomainURL              = "Domain URL"
	FieldTotalListingViews      = "Total Listing Views"
	FieldTotalPhotoViews        = "Total Photo Views (Domain)"
	FieldTotalPhotoGalleryViews = "Total Photo Gallery Views (Domain)"
	FieldTotalFloorPlanViews    = "Total Floor Plan Views (Domain)"
	FieldTotalMapViews          = "Total Map Views (Domain)"
	FieldTotalPhoneReveals      = "Total Agent Phone Number Reveals (Domain)"
	FieldTotalEmailEnquiries    = "Total Email Enquiries (Domain)"
	FieldTotalWebsiteViews      = "Total Website Views (Domain)"
	FieldTotalMobileSiteViews   = "Total Mobile Site Views (Domain)"
)

// Fields is a field-name keyed record body as written to the tabular store.
type Fields map[string]interface{}

// JSONB type for GORM to handle PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Value implements driver.Valuer for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// SyncRecord is the denormalized listing+statistics row kept in the Postgres mirror.
// ListingID is unique: one row per listing, overwritten on every sync.
type SyncRecord struct {
	ID        string    `gorm:"column:id;primaryKey"`
	ListingID string    `gorm:"column:listing_id;uniqueIndex"`
	Fields    JSONB     `gorm:"column:fields;type:jsonb"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (SyncRecord) TableName() string {
	return "sync_record"
}
