package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	listingNameMaxLength = 255
	listingURLMaxLength  = 1000
	harStatusMaxLength   = 64

	urlSchemeHTTP  = "http://"
	urlSchemeHTTPS = "https://"
)

var (
	ErrInvalidListingOwner = errors.New("invalid_listing_owner")
	ErrInvalidListingName  = errors.New("invalid_listing_name")
	ErrInvalidURL          = errors.New("invalid_url")
	ErrNegativeMetric      = errors.New("negative_metric")
)

// Listing is a tracked property owned by a single user.
type Listing struct {
	ID              string         `gorm:"primaryKey;size:36"`
	OwnerID         string         `gorm:"not null;size:320;index"`
	Name            string         `gorm:"not null;size:255"`
	HARURL          string         `gorm:"column:har_url;size:1000"`
	RealtorURL      string         `gorm:"size:1000"`
	ZillowURL       string         `gorm:"size:1000"`
	ImageURL        string         `gorm:"size:1000"`
	ImageKey        string         `gorm:"size:500"`
	IsActive        bool           `gorm:"not null"`
	HARDesktopViews *int64         `gorm:"column:har_desktop_views"`
	HARMobileViews  *int64         `gorm:"column:har_mobile_views"`
	HARPhotoViews   *int64         `gorm:"column:har_photo_views"`
	HARDaysOnMarket *int64         `gorm:"column:har_days_on_market"`
	HARStatus       string         `gorm:"column:har_status;size:64"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// ListingInput holds the raw values used to construct or edit a Listing.
type ListingInput struct {
	OwnerID    string
	Name       string
	HARURL     string
	RealtorURL string
	ZillowURL  string
	IsActive   *bool
}

// HARSnapshotInput carries the listing-level HAR overrides edited on the listing form.
type HARSnapshotInput struct {
	DesktopViews *int64
	MobileViews  *int64
	PhotoViews   *int64
	DaysOnMarket *int64
	Status       string
}

// NewListing constructs a validated, active Listing.
func NewListing(input ListingInput) (Listing, error) {
	ownerID := NormalizeOwnerID(input.OwnerID)
	if ownerID == "" {
		return Listing{}, ErrInvalidListingOwner
	}
	name, nameErr := normalizeListingName(input.Name)
	if nameErr != nil {
		return Listing{}, nameErr
	}
	urls, urlErr := normalizePlatformURLs(input.HARURL, input.RealtorURL, input.ZillowURL)
	if urlErr != nil {
		return Listing{}, urlErr
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	return Listing{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       name,
		HARURL:     urls[0],
		RealtorURL: urls[1],
		ZillowURL:  urls[2],
		IsActive:   isActive,
	}, nil
}

// ApplyEdit validates input and overwrites the editable basic fields of the listing.
func (listing *Listing) ApplyEdit(input ListingInput) error {
	name, nameErr := normalizeListingName(input.Name)
	if nameErr != nil {
		return nameErr
	}
	urls, urlErr := normalizePlatformURLs(input.HARURL, input.RealtorURL, input.ZillowURL)
	if urlErr != nil {
		return urlErr
	}
	listing.Name = name
	listing.HARURL = urls[0]
	listing.RealtorURL = urls[1]
	listing.ZillowURL = urls[2]
	if input.IsActive != nil {
		listing.IsActive = *input.IsActive
	}
	return nil
}

// ApplyHARSnapshot overwrites the HAR snapshot fields of the listing.
func (listing *Listing) ApplyHARSnapshot(input HARSnapshotInput) error {
	for _, value := range []*int64{input.DesktopViews, input.MobileViews, input.PhotoViews, input.DaysOnMarket} {
		if value != nil && *value < 0 {
			return fmt.Errorf("%w: har snapshot", ErrNegativeMetric)
		}
	}
	status := strings.TrimSpace(input.Status)
	if len(status) > harStatusMaxLength {
		status = status[:harStatusMaxLength]
	}
	listing.HARDesktopViews = input.DesktopViews
	listing.HARMobileViews = input.MobileViews
	listing.HARPhotoViews = input.PhotoViews
	listing.HARDaysOnMarket = input.DaysOnMarket
	listing.HARStatus = status
	return nil
}

// HasHAR reports whether a HAR.com URL is configured.
func (listing Listing) HasHAR() bool {
	return listing.HARURL != ""
}

// HasRealtor reports whether a Realtor.com URL is configured.
func (listing Listing) HasRealtor() bool {
	return listing.RealtorURL != ""
}

// HasZillow reports whether a Zillow URL is configured.
func (listing Listing) HasZillow() bool {
	return listing.ZillowURL != ""
}

// SnapshotHARViews returns desktop plus mobile snapshot views and whether either was set.
func (listing Listing) SnapshotHARViews() (int64, bool) {
	if listing.HARDesktopViews == nil && listing.HARMobileViews == nil {
		return 0, false
	}
	return ValueOrZero(listing.HARDesktopViews) + ValueOrZero(listing.HARMobileViews), true
}

// NormalizeOwnerID canonicalizes a caller identifier.
func NormalizeOwnerID(ownerID string) string {
	return strings.ToLower(strings.TrimSpace(ownerID))
}

// ValueOrZero dereferences an optional count.
func ValueOrZero(value *int64) int64 {
	if value == nil {
		return 0
	}
	return *value
}

func normalizeListingName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidListingName)
	}
	if utf8.RuneCountInString(name) > listingNameMaxLength {
		return "", fmt.Errorf("%w: name is too long", ErrInvalidListingName)
	}
	return name, nil
}

func normalizePlatformURLs(values ...string) ([]string, error) {
	normalized := make([]string, len(values))
	for index, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if err := validateHTTPURL(trimmed); err != nil {
			return nil, err
		}
		normalized[index] = trimmed
	}
	return normalized, nil
}

func validateHTTPURL(value string) error {
	lowered := strings.ToLower(value)
	if !strings.HasPrefix(lowered, urlSchemeHTTP) && !strings.HasPrefix(lowered, urlSchemeHTTPS) {
		return fmt.Errorf("%w: must start with http:// or https://", ErrInvalidURL)
	}
	if len(value) > listingURLMaxLength {
		return fmt.Errorf("%w: too long", ErrInvalidURL)
	}
	return nil
}
