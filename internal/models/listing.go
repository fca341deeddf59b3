package models

// Listing is a property listing as returned by the partner listings API.
// Only the fields mirrored into the tabular store are decoded.
type Listing struct {
	ID           int64        `json:"id"`
	AddressParts AddressParts `json:"addressParts"`
	Bathrooms    float64      `json:"bathrooms"`
	Bedrooms     float64      `json:"bedrooms"`
	Carspaces    float64      `json:"carspaces"`
	DateUpdated  string       `json:"dateUpdated"`
	DateListed   string       `json:"dateListed"`
	Description  string       `json:"description"`
	Headline     string       `json:"headline"`
	PriceDetails PriceDetails `json:"priceDetails"`
	SeoURL       string       `json:"seoUrl"`
}

type AddressParts struct {
	DisplayAddress string `json:"displayAddress"`
	Suburb         string `json:"suburb"`
}

type PriceDetails struct {
	DisplayPrice string `json:"displayPrice"`
}

// ListingStatistics holds the engagement counters for one listing.
type ListingStatistics struct {
	TotalListingViews            int64   `json:"totalListingViews"`
	TotalPhotoViews              int64   `json:"totalPhotoViews"`
	TotalPhotoGalleryViews       int64   `json:"totalPhotoGalleryViews"`
	TotalFloorplanViews          int64   `json:"totalFloorplanViews"`
	TotalMapViews                int64   `json:"totalMapViews"`
	TotalAgentPhoneNumberReveals int64   `json:"totalAgentPhoneNumberReveals"`
	TotalEnquiries               int64   `json:"totalEnquiries"`
	PercentageWebsiteViews       float64 `json:"percentageWebsiteViews"`
	PercentageMobileSiteViews    float64 `json:"percentageMobileSiteViews"`
}

// StatisticsResponse is the envelope of GET /listings/{id}/statistics
type StatisticsResponse struct {
	Summary *ListingStatistics `json:"summary"`
}

// Agency is an agency visible to the authenticated credential.
type Agency struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Suburb  string `json:"suburb,omitempty"`
	Website string `json:"website,omitempty"`
}
