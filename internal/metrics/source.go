package metrics

import (
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

// SourceKind names one variant of MetricSource.
type SourceKind string

const (
	SourceKindNone            SourceKind = "none"
	SourceKindLegacy          SourceKind = "legacy"
	SourceKindPlatformMetrics SourceKind = "platform_metrics"
	SourceKindSimplifiedPost  SourceKind = "simplified_post"
)

// MetricSource is the closed set of persisted traffic sources. Only the variants in
// this package implement it.
type MetricSource interface {
	Kind() SourceKind
	isMetricSource()
}

// LegacySource carries the listing-level data of the original model: general and
// Facebook-attributed analytics rows, per-URL Facebook metrics and the HAR snapshot.
type LegacySource struct {
	Listing         model.Listing
	Analytics       []model.Analytics
	FacebookURLs    []model.FacebookURL
	FacebookMetrics []model.FacebookMetric
}

// PlatformMetricsSource carries per-platform daily rows.
type PlatformMetricsSource struct {
	Rows []model.PlatformMetric
}

// SimplifiedPostSource carries Facebook posts with a single view snapshot each.
type SimplifiedPostSource struct {
	Posts []model.FacebookPost
}

func (LegacySource) Kind() SourceKind          { return SourceKindLegacy }
func (PlatformMetricsSource) Kind() SourceKind { return SourceKindPlatformMetrics }
func (SimplifiedPostSource) Kind() SourceKind  { return SourceKindSimplifiedPost }

func (LegacySource) isMetricSource()          {}
func (PlatformMetricsSource) isMetricSource() {}
func (SimplifiedPostSource) isMetricSource()  {}

// FacebookEntry is one Facebook post figure in a summary.
type FacebookEntry struct {
	URL    string `json:"url"`
	Views  int64  `json:"views"`
	Clicks int64  `json:"clicks"`
	Reach  int64  `json:"reach"`
}

// Summary is the unified per-listing traffic figure set. Every numeric field defaults to zero.
type Summary struct {
	TotalViews      int64           `json:"total_views"`
	TotalClicks     int64           `json:"total_clicks"`
	GeneralViews    int64           `json:"general_views"`
	GeneralClicks   int64           `json:"general_clicks"`
	HARViews        int64           `json:"har_views"`
	RealtorViews    int64           `json:"realtor_views"`
	ZillowViews     int64           `json:"zillow_views"`
	PlatformLeads   int64           `json:"platform_leads"`
	FacebookViews   int64           `json:"facebook_views"`
	FacebookClicks  int64           `json:"facebook_clicks"`
	FacebookReach   int64           `json:"facebook_reach"`
	FacebookEntries []FacebookEntry `json:"facebook_entries"`
	HARSource       SourceKind      `json:"har_source"`
	FacebookSource  SourceKind      `json:"facebook_source"`
	SplitFallback   bool            `json:"split_fallback"`
	Degraded        []string        `json:"degraded,omitempty"`
}

// Resolution records which variant supplies each contested figure.
type Resolution struct {
	HAR      SourceKind
	Facebook SourceKind
}

// ResolvePrecedence decides which source wins for the HAR and Facebook figures.
//
// HAR: platform_metrics rows tagged har, else the listing snapshot, else none.
// Facebook: simplified posts, else per-URL Facebook metrics, else Facebook-attributed
// analytics rows, else none. Both legacy Facebook paths resolve to SourceKindLegacy.
func ResolvePrecedence(sources []MetricSource) Resolution {
	resolution := Resolution{HAR: SourceKindNone, Facebook: SourceKindNone}
	harFromPlatform := false
	harFromSnapshot := false
	facebookFromPosts := false
	facebookFromLegacy := false

	for _, source := range sources {
		switch typed := source.(type) {
		case PlatformMetricsSource:
			for _, row := range typed.Rows {
				if row.Platform == model.PlatformHAR {
					harFromPlatform = true
					break
				}
			}
		case SimplifiedPostSource:
			if len(typed.Posts) > 0 {
				facebookFromPosts = true
			}
		case LegacySource:
			if _, present := typed.Listing.SnapshotHARViews(); present {
				harFromSnapshot = true
			}
			if len(typed.FacebookMetrics) > 0 || hasAttributedAnalytics(typed.Analytics) {
				facebookFromLegacy = true
			}
		}
	}

	switch {
	case harFromPlatform:
		resolution.HAR = SourceKindPlatformMetrics
	case harFromSnapshot:
		resolution.HAR = SourceKindLegacy
	}
	switch {
	case facebookFromPosts:
		resolution.Facebook = SourceKindSimplifiedPost
	case facebookFromLegacy:
		resolution.Facebook = SourceKindLegacy
	}
	return resolution
}

func hasAttributedAnalytics(rows []model.Analytics) bool {
	for _, row := range rows {
		if row.FacebookURLID != nil {
			return true
		}
	}
	return false
}
