package service

import (
	"github.com/vipul43/listing-sync/internal/models"
)

// BuildFields joins a listing with its statistics into the store's record
// shape. Empty listing values become nil; missing statistics become 0.
func BuildFields(listing models.Listing, stats *models.ListingStatistics) models.Fields {
	if stats == nil {
		stats = &models.ListingStatistics{}
	}

	return models.Fields{
		models.FieldListingID:       listing.ID,
		models.FieldPropertyAddress: stringOrNil(listing.AddressParts.DisplayAddress),
		models.FieldSuburb:          stringOrNil(listing.AddressParts.Suburb),
		models.FieldBathrooms:       numberOrNil(listing.Bathrooms),
		models.FieldBedrooms:        numberOrNil(listing.Bedrooms),
		models.FieldCarspaces:       numberOrNil(listing.Carspaces),
		models.FieldDateUpdated:     stringOrNil(listing.DateUpdated),
		models.FieldDateListed:      stringOrNil(listing.DateListed),
		models.FieldDescription:     stringOrNil(listing.Description),
		models.FieldHeading:         stringOrNil(listing.Headline),
		models.FieldPriceDisplay:    stringOrNil(listing.PriceDetails.DisplayPrice),
		models.FieldDomainURL:       stringOrNil(listing.SeoURL),

		models.FieldTotalListingViews:      stats.TotalListingViews,
		models.FieldTotalPhotoViews:        stats.TotalPhotoViews,
		models.FieldTotalPhotoGalleryViews: stats.TotalPhotoGalleryViews,
		models.FieldTotalFloorPlanViews:    stats.TotalFloorplanViews,
		models.FieldTotalMapViews:          stats.TotalMapViews,
		models.FieldTotalPhoneReveals:      stats.TotalAgentPhoneNumberReveals,
		models.FieldTotalEmailEnquiries:    stats.TotalEnquiries,
		models.FieldTotalWebsiteViews:      stats.PercentageWebsiteViews,
		models.FieldTotalMobileSiteViews:   stats.PercentageMobileSiteViews,
	}
}

func stringOrNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func numberOrNil(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
