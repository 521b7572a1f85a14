package metrics

import (
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

// Reduce folds the given sources into one Summary using ResolvePrecedence.
// General analytics views are split across the listing's platform URLs when no
// per-platform figure exists.
func Reduce(sources []MetricSource) Summary {
	resolution := ResolvePrecedence(sources)
	summary := Summary{
		FacebookEntries: []FacebookEntry{},
		HARSource:       resolution.HAR,
		FacebookSource:  resolution.Facebook,
	}

	var legacy LegacySource
	for _, source := range sources {
		switch typed := source.(type) {
		case LegacySource:
			legacy = typed
			reduceGeneralAnalytics(&summary, typed.Analytics)
			if resolution.HAR == SourceKindLegacy {
				summary.HARViews, _ = typed.Listing.SnapshotHARViews()
			}
			if resolution.Facebook == SourceKindLegacy {
				reduceLegacyFacebook(&summary, typed)
			}
		case PlatformMetricsSource:
			reducePlatformRows(&summary, typed.Rows, resolution.HAR == SourceKindPlatformMetrics)
		case SimplifiedPostSource:
			if resolution.Facebook == SourceKindSimplifiedPost {
				reduceSimplifiedPosts(&summary, typed.Posts)
			}
		}
	}

	summary.TotalViews = summary.GeneralViews + summary.HARViews + summary.RealtorViews + summary.ZillowViews + summary.FacebookViews
	summary.TotalClicks = summary.GeneralClicks + summary.PlatformLeads + summary.FacebookClicks

	applySplitFallback(&summary, legacy.Listing)
	return summary
}

func reduceGeneralAnalytics(summary *Summary, rows []model.Analytics) {
	for _, row := range rows {
		if row.FacebookURLID != nil {
			continue
		}
		summary.GeneralViews += row.Views
		summary.GeneralClicks += row.Clicks
	}
}

func reducePlatformRows(summary *Summary, rows []model.PlatformMetric, includeHAR bool) {
	for _, row := range rows {
		views := model.ValueOrZero(row.Views)
		switch row.Platform {
		case model.PlatformRealtor:
			summary.RealtorViews += views
		case model.PlatformZillow:
			summary.ZillowViews += views
		case model.PlatformHAR:
			if includeHAR {
				summary.HARViews += views
			}
		}
		summary.PlatformLeads += model.ValueOrZero(row.Leads)
	}
}

func reduceSimplifiedPosts(summary *Summary, posts []model.FacebookPost) {
	for _, post := range posts {
		summary.FacebookEntries = append(summary.FacebookEntries, FacebookEntry{URL: post.URL, Views: post.Views})
		summary.FacebookViews += post.Views
	}
}

// reduceLegacyFacebook groups per-URL Facebook metrics when any exist, else
// Facebook-attributed analytics rows. Entries follow the tracked URL order.
func reduceLegacyFacebook(summary *Summary, legacy LegacySource) {
	grouping := newFacebookGrouping(legacy.FacebookURLs)
	if len(legacy.FacebookMetrics) > 0 {
		for _, metric := range legacy.FacebookMetrics {
			entry := grouping.entry(metric.FacebookURLID, "")
			entry.Views += model.ValueOrZero(metric.Impressions)
			entry.Clicks += model.ValueOrZero(metric.PostClicks)
			entry.Reach += model.ValueOrZero(metric.Reach)
		}
	} else {
		for _, row := range legacy.Analytics {
			if row.FacebookURLID == nil {
				continue
			}
			fallbackURL := ""
			if row.FacebookURL != nil {
				fallbackURL = row.FacebookURL.URL
			}
			entry := grouping.entry(*row.FacebookURLID, fallbackURL)
			entry.Views += row.Views
			entry.Clicks += row.Clicks
		}
	}

	for _, entry := range grouping.populated() {
		summary.FacebookEntries = append(summary.FacebookEntries, entry)
		summary.FacebookViews += entry.Views
		summary.FacebookClicks += entry.Clicks
		summary.FacebookReach += entry.Reach
	}
}

func applySplitFallback(summary *Summary, listing model.Listing) {
	if summary.HARViews+summary.RealtorViews+summary.ZillowViews > 0 || summary.GeneralViews == 0 {
		return
	}
	presentPlatforms := 0
	for _, present := range []bool{listing.HasHAR(), listing.HasRealtor(), listing.HasZillow()} {
		if present {
			presentPlatforms++
		}
	}
	if presentPlatforms == 0 {
		return
	}
	share := SplitEvenly(summary.GeneralViews, presentPlatforms)
	if listing.HasHAR() {
		summary.HARViews = share
	}
	if listing.HasRealtor() {
		summary.RealtorViews = share
	}
	if listing.HasZillow() {
		summary.ZillowViews = share
	}
	summary.SplitFallback = true
}

type facebookGrouping struct {
	order   []string
	entries map[string]*FacebookEntry
	touched map[string]bool
}

func newFacebookGrouping(urls []model.FacebookURL) *facebookGrouping {
	grouping := &facebookGrouping{
		entries: make(map[string]*FacebookEntry, len(urls)),
		touched: make(map[string]bool, len(urls)),
	}
	for _, url := range urls {
		grouping.order = append(grouping.order, url.ID)
		grouping.entries[url.ID] = &FacebookEntry{URL: url.URL}
	}
	return grouping
}

func (grouping *facebookGrouping) entry(urlID string, fallbackURL string) *FacebookEntry {
	grouping.touched[urlID] = true
	existing, found := grouping.entries[urlID]
	if found {
		return existing
	}
	created := &FacebookEntry{URL: fallbackURL}
	grouping.order = append(grouping.order, urlID)
	grouping.entries[urlID] = created
	return created
}

func (grouping *facebookGrouping) populated() []FacebookEntry {
	entries := make([]FacebookEntry, 0, len(grouping.touched))
	for _, urlID := range grouping.order {
		if grouping.touched[urlID] {
			entries = append(entries, *grouping.entries[urlID])
		}
	}
	return entries
}
