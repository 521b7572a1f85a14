package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

// Platform tags a listing platform for PlatformMetric rows.
type Platform string

const (
	PlatformRealtor Platform = "realtor"
	PlatformZillow  Platform = "zillow"
	PlatformHAR     Platform = "har"

	// MetricDateLayout is the canonical wire format for metric dates.
	MetricDateLayout = "2006-01-02"
)

var (
	ErrInvalidPlatform      = errors.New("invalid_platform")
	ErrInvalidMetricDate    = errors.New("invalid_metric_date")
	ErrInvalidFacebookURLID = errors.New("invalid_facebook_url_id")
)

// Analytics is a per-day view/click entry for a listing, optionally attributed to a FacebookURL.
type Analytics struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	ListingID     string    `gorm:"not null;size:36;uniqueIndex:idx_analytics_listing_url_date,priority:1" json:"listing_id"`
	FacebookURLID *string   `gorm:"size:36;uniqueIndex:idx_analytics_listing_url_date,priority:2" json:"facebook_url_id"`
	MetricDate    time.Time `gorm:"not null;uniqueIndex:idx_analytics_listing_url_date,priority:3" json:"metric_date"`
	Views         int64     `gorm:"not null" json:"views"`
	Clicks        int64     `gorm:"not null" json:"clicks"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	FacebookURL *FacebookURL `gorm:"foreignKey:FacebookURLID;constraint:OnDelete:SET NULL" json:"facebook_url,omitempty"`
}

// TableName pins the analytics table name.
func (Analytics) TableName() string {
	return "analytics"
}

// PlatformMetric is a per-day metric row for one listing platform.
type PlatformMetric struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ListingID  string    `gorm:"not null;size:36;uniqueIndex:idx_platform_metrics_listing_platform_date,priority:1" json:"listing_id"`
	Platform   Platform  `gorm:"not null;size:16;uniqueIndex:idx_platform_metrics_listing_platform_date,priority:2" json:"platform"`
	MetricDate time.Time `gorm:"not null;uniqueIndex:idx_platform_metrics_listing_platform_date,priority:3" json:"metric_date"`
	Views      *int64    `json:"views"`
	Saves      *int64    `json:"saves"`
	Shares     *int64    `json:"shares"`
	Leads      *int64    `json:"leads"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FacebookMetric is a per-day engagement row for one FacebookURL.
type FacebookMetric struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	FacebookURLID string    `gorm:"not null;size:36;uniqueIndex:idx_facebook_metrics_url_date,priority:1" json:"facebook_url_id"`
	MetricDate    time.Time `gorm:"not null;uniqueIndex:idx_facebook_metrics_url_date,priority:2" json:"metric_date"`
	Impressions   *int64    `json:"impressions"`
	Reach         *int64    `json:"reach"`
	PostClicks    *int64    `json:"post_clicks"`
	Reactions     *int64    `json:"reactions"`
	Comments      *int64    `json:"comments"`
	Shares        *int64    `json:"shares"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AnalyticsInput holds raw values for an Analytics upsert.
type AnalyticsInput struct {
	ListingID     string
	FacebookURLID string
	MetricDate    string
	Views         int64
	Clicks        int64
}

// PlatformMetricInput holds raw values for a PlatformMetric upsert.
type PlatformMetricInput struct {
	ListingID  string
	Platform   string
	MetricDate string
	Views      *int64
	Saves      *int64
	Shares     *int64
	Leads      *int64
}

// FacebookMetricInput holds raw values for a FacebookMetric upsert.
type FacebookMetricInput struct {
	FacebookURLID string
	MetricDate    string
	Impressions   *int64
	Reach         *int64
	PostClicks    *int64
	Reactions     *int64
	Comments      *int64
	Shares        *int64
}

// NewAnalytics constructs a validated Analytics row. An empty FacebookURLID marks a general entry.
func NewAnalytics(input AnalyticsInput) (Analytics, error) {
	listingID := strings.TrimSpace(input.ListingID)
	if listingID == "" {
		return Analytics{}, ErrInvalidListingID
	}
	metricDate, dateErr := ParseMetricDate(input.MetricDate)
	if dateErr != nil {
		return Analytics{}, dateErr
	}
	if input.Views < 0 || input.Clicks < 0 {
		return Analytics{}, fmt.Errorf("%w: views and clicks", ErrNegativeMetric)
	}
	var facebookURLID *string
	if trimmed := strings.TrimSpace(input.FacebookURLID); trimmed != "" {
		facebookURLID = &trimmed
	}
	return Analytics{
		ID:            uuid.NewString(),
		ListingID:     listingID,
		FacebookURLID: facebookURLID,
		MetricDate:    metricDate,
		Views:         input.Views,
		Clicks:        input.Clicks,
	}, nil
}

// NewPlatformMetric constructs a validated PlatformMetric row.
func NewPlatformMetric(input PlatformMetricInput) (PlatformMetric, error) {
	listingID := strings.TrimSpace(input.ListingID)
	if listingID == "" {
		return PlatformMetric{}, ErrInvalidListingID
	}
	platform, platformErr := ParsePlatform(input.Platform)
	if platformErr != nil {
		return PlatformMetric{}, platformErr
	}
	metricDate, dateErr := ParseMetricDate(input.MetricDate)
	if dateErr != nil {
		return PlatformMetric{}, dateErr
	}
	if err := requireNonNegative(input.Views, input.Saves, input.Shares, input.Leads); err != nil {
		return PlatformMetric{}, err
	}
	return PlatformMetric{
		ID:         uuid.NewString(),
		ListingID:  listingID,
		Platform:   platform,
		MetricDate: metricDate,
		Views:      input.Views,
		Saves:      input.Saves,
		Shares:     input.Shares,
		Leads:      input.Leads,
	}, nil
}

// NewFacebookMetric constructs a validated FacebookMetric row.
func NewFacebookMetric(input FacebookMetricInput) (FacebookMetric, error) {
	facebookURLID := strings.TrimSpace(input.FacebookURLID)
	if facebookURLID == "" {
		return FacebookMetric{}, ErrInvalidFacebookURLID
	}
	metricDate, dateErr := ParseMetricDate(input.MetricDate)
	if dateErr != nil {
		return FacebookMetric{}, dateErr
	}
	if err := requireNonNegative(input.Impressions, input.Reach, input.PostClicks, input.Reactions, input.Comments, input.Shares); err != nil {
		return FacebookMetric{}, err
	}
	return FacebookMetric{
		ID:            uuid.NewString(),
		FacebookURLID: facebookURLID,
		MetricDate:    metricDate,
		Impressions:   input.Impressions,
		Reach:         input.Reach,
		PostClicks:    input.PostClicks,
		Reactions:     input.Reactions,
		Comments:      input.Comments,
		Shares:        input.Shares,
	}, nil
}

// ParsePlatform validates a platform tag.
func ParsePlatform(raw string) (Platform, error) {
	platform := Platform(strings.ToLower(strings.TrimSpace(raw)))
	switch platform {
	case PlatformRealtor, PlatformZillow, PlatformHAR:
		return platform, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, raw)
	}
}

// ParseMetricDate parses a metric date and truncates it to UTC midnight.
func ParseMetricDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidMetricDate)
	}
	parsed, parseErr := time.Parse(MetricDateLayout, trimmed)
	if parseErr != nil {
		parsed, parseErr = dateparse.ParseIn(trimmed, time.UTC)
		if parseErr != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidMetricDate, parseErr)
		}
	}
	return TruncateToDay(parsed), nil
}

// TruncateToDay returns midnight UTC of the calendar day of value.
func TruncateToDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}

func requireNonNegative(values ...*int64) error {
	for _, value := range values {
		if value != nil && *value < 0 {
			return ErrNegativeMetric
		}
	}
	return nil
}
