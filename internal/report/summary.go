package report

import (
	"regexp"
	"time"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/metrics"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

const (
	// ReportDateLayout renders the human-readable report date.
	ReportDateLayout = "January 2, 2006"

	pdfFilenameSuffix       = "_Traffic_Report.pdf"
	estimatedClickPercent   = 15
	percentDenominator      = 100
	filenameReplacementRune = "_"
)

var nonAlphanumericPattern = regexp.MustCompile(`[^A-Za-z0-9]`)

// FacebookEntry is one Facebook post block in a report.
type FacebookEntry struct {
	URL    string `json:"url"`
	Views  int64  `json:"views"`
	Clicks int64  `json:"clicks"`
	Reach  int64  `json:"reach"`
}

// Summary is the single data contract shared by the on-screen, print and PDF surfaces.
type Summary struct {
	ListingID       string          `json:"listing_id"`
	ListingName     string          `json:"listing_name"`
	ImageURL        string          `json:"image_url,omitempty"`
	HasHAR          bool            `json:"has_har"`
	HasRealtor      bool            `json:"has_realtor"`
	HasZillow       bool            `json:"has_zillow"`
	TotalViews      int64           `json:"total_views"`
	TotalClicks     int64           `json:"total_clicks"`
	HARViews        int64           `json:"har_views"`
	RealtorViews    int64           `json:"realtor_views"`
	ZillowViews     int64           `json:"zillow_views"`
	FacebookEntries []FacebookEntry `json:"facebook_entries"`
	ReportDate      string          `json:"report_date"`
	Degraded        []string        `json:"degraded,omitempty"`
}

// Options holds product switches for rendering.
type Options struct {
	// EstimatePlatformClicks shows per-platform clicks as a fixed share of views.
	EstimatePlatformClicks bool
}

// FromMetrics projects listing metadata and a normalized metrics summary into the report contract.
func FromMetrics(listing model.Listing, summary metrics.Summary, generatedAt time.Time) Summary {
	entries := make([]FacebookEntry, 0, len(summary.FacebookEntries))
	for _, entry := range summary.FacebookEntries {
		entries = append(entries, FacebookEntry{URL: entry.URL, Views: entry.Views, Clicks: entry.Clicks, Reach: entry.Reach})
	}
	return Summary{
		ListingID:       listing.ID,
		ListingName:     listing.Name,
		ImageURL:        listing.ImageURL,
		HasHAR:          listing.HasHAR(),
		HasRealtor:      listing.HasRealtor(),
		HasZillow:       listing.HasZillow(),
		TotalViews:      summary.TotalViews,
		TotalClicks:     summary.TotalClicks,
		HARViews:        summary.HARViews,
		RealtorViews:    summary.RealtorViews,
		ZillowViews:     summary.ZillowViews,
		FacebookEntries: entries,
		ReportDate:      FormatReportDate(generatedAt),
		Degraded:        summary.Degraded,
	}
}

// FormatReportDate renders a date like "January 2, 2006".
func FormatReportDate(value time.Time) string {
	return value.Format(ReportDateLayout)
}

// EstimateClicks approximates platform clicks as 15% of views, rounded down.
func EstimateClicks(views int64) int64 {
	return views * estimatedClickPercent / percentDenominator
}

// PDFFilename derives the download name from the listing name.
func PDFFilename(listingName string) string {
	return nonAlphanumericPattern.ReplaceAllString(listingName, filenameReplacementRune) + pdfFilenameSuffix
}
