package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	facebookHostPrimary   = "facebook.com"
	facebookHostShortened = "fb.com"
	facebookPostURLLimit  = 2000
)

var (
	ErrInvalidListingID   = errors.New("invalid_listing_id")
	ErrInvalidFacebookURL = errors.New("invalid_facebook_url")
	ErrInvalidPostURL     = errors.New("invalid_facebook_post_url")
)

// FacebookURL is a tracked Facebook post under the per-URL metric model.
type FacebookURL struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ListingID string    `gorm:"not null;size:36;index" json:"listing_id"`
	URL       string    `gorm:"not null;size:1000" json:"url"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FacebookPost is a Facebook post carrying a single, directly edited view count.
type FacebookPost struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ListingID string    `gorm:"not null;size:36;index" json:"listing_id"`
	URL       string    `gorm:"not null;size:2000" json:"url"`
	Views     int64     `gorm:"not null" json:"views"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FacebookPostInput holds the raw values for creating or editing a FacebookPost.
type FacebookPostInput struct {
	ListingID string
	URL       *string
	Views     *int64
}

// NewFacebookURL constructs a validated FacebookURL.
func NewFacebookURL(listingID string, rawURL string) (FacebookURL, error) {
	trimmedListingID := strings.TrimSpace(listingID)
	if trimmedListingID == "" {
		return FacebookURL{}, ErrInvalidListingID
	}
	trimmedURL := strings.TrimSpace(rawURL)
	if trimmedURL == "" {
		return FacebookURL{}, fmt.Errorf("%w: url is required", ErrInvalidFacebookURL)
	}
	if err := validateHTTPURL(trimmedURL); err != nil {
		return FacebookURL{}, fmt.Errorf("%w: %v", ErrInvalidFacebookURL, err)
	}
	lowered := strings.ToLower(trimmedURL)
	if !strings.Contains(lowered, facebookHostPrimary) && !strings.Contains(lowered, facebookHostShortened) {
		return FacebookURL{}, fmt.Errorf("%w: not a facebook url", ErrInvalidFacebookURL)
	}
	return FacebookURL{
		ID:        uuid.NewString(),
		ListingID: trimmedListingID,
		URL:       trimmedURL,
	}, nil
}

// NewFacebookPost constructs a FacebookPost. The URL is free text.
func NewFacebookPost(input FacebookPostInput) (FacebookPost, error) {
	listingID := strings.TrimSpace(input.ListingID)
	if listingID == "" {
		return FacebookPost{}, ErrInvalidListingID
	}
	post := FacebookPost{
		ID:        uuid.NewString(),
		ListingID: listingID,
	}
	if input.URL == nil {
		return FacebookPost{}, fmt.Errorf("%w: url is required", ErrInvalidPostURL)
	}
	if err := post.ApplyEdit(input); err != nil {
		return FacebookPost{}, err
	}
	return post, nil
}

// ApplyEdit overwrites the fields present in input; absent fields stay untouched.
// Views replace the stored snapshot rather than adding to it.
func (post *FacebookPost) ApplyEdit(input FacebookPostInput) error {
	if input.URL != nil {
		trimmedURL := strings.TrimSpace(*input.URL)
		if trimmedURL == "" {
			return fmt.Errorf("%w: url is required", ErrInvalidPostURL)
		}
		if len(trimmedURL) > facebookPostURLLimit {
			return fmt.Errorf("%w: too long", ErrInvalidPostURL)
		}
		post.URL = trimmedURL
	}
	if input.Views != nil {
		if *input.Views < 0 {
			return fmt.Errorf("%w: views", ErrNegativeMetric)
		}
		post.Views = *input.Views
	}
	return nil
}
