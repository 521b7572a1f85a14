package metrics

import (
	"sort"
	"time"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

const trendDayLayout = model.MetricDateLayout

// PortfolioSummary totals legacy analytics across an owner's listings.
type PortfolioSummary struct {
	TotalViews     int64 `json:"total_views"`
	TotalClicks    int64 `json:"total_clicks"`
	ActiveListings int64 `json:"active_listings"`
	TotalListings  int64 `json:"total_listings"`
}

// TrendPoint is the sum of analytics rows for one metric date.
type TrendPoint struct {
	Date   time.Time `json:"-"`
	Day    string    `json:"date"`
	Views  int64     `json:"views"`
	Clicks int64     `json:"clicks"`
}

// PerformanceRow is one listing's line in a comparison table.
type PerformanceRow struct {
	ListingID         string `json:"listing_id"`
	ListingName       string `json:"listing_name"`
	IsActive          bool   `json:"is_active"`
	TotalViews        int64  `json:"total_views"`
	TotalClicks       int64  `json:"total_clicks"`
	FacebookPostCount int64  `json:"facebook_post_count"`
}

// SummarizePortfolio sums legacy analytics only; platform and Facebook metric tables are excluded.
// Analytics rows for listings not in the given set are ignored.
func SummarizePortfolio(listings []model.Listing, analytics []model.Analytics) PortfolioSummary {
	known := make(map[string]struct{}, len(listings))
	summary := PortfolioSummary{TotalListings: int64(len(listings))}
	for _, listing := range listings {
		known[listing.ID] = struct{}{}
		if listing.IsActive {
			summary.ActiveListings++
		}
	}
	for _, row := range analytics {
		if _, found := known[row.ListingID]; !found {
			continue
		}
		summary.TotalViews += row.Views
		summary.TotalClicks += row.Clicks
	}
	return summary
}

// Trend groups analytics rows by metric date in ascending order. Dates without rows are absent.
func Trend(analytics []model.Analytics) []TrendPoint {
	byDay := make(map[time.Time]*TrendPoint)
	for _, row := range analytics {
		day := model.TruncateToDay(row.MetricDate)
		point, found := byDay[day]
		if !found {
			point = &TrendPoint{Date: day, Day: day.Format(trendDayLayout)}
			byDay[day] = point
		}
		point.Views += row.Views
		point.Clicks += row.Clicks
	}
	points := make([]TrendPoint, 0, len(byDay))
	for _, point := range byDay {
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// BuildPerformanceRows returns one unsorted row per listing from legacy analytics and
// per-listing Facebook entry counts.
func BuildPerformanceRows(listings []model.Listing, analytics []model.Analytics, facebookCounts map[string]int64) []PerformanceRow {
	rows := make([]PerformanceRow, 0, len(listings))
	index := make(map[string]int, len(listings))
	for _, listing := range listings {
		index[listing.ID] = len(rows)
		rows = append(rows, PerformanceRow{
			ListingID:         listing.ID,
			ListingName:       listing.Name,
			IsActive:          listing.IsActive,
			FacebookPostCount: facebookCounts[listing.ID],
		})
	}
	for _, row := range analytics {
		position, found := index[row.ListingID]
		if !found {
			continue
		}
		rows[position].TotalViews += row.Views
		rows[position].TotalClicks += row.Clicks
	}
	return rows
}

// SortPerformanceRows orders rows by views plus clicks, descending, with name as tie breaker.
func SortPerformanceRows(rows []PerformanceRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		left := rows[i].TotalViews + rows[i].TotalClicks
		right := rows[j].TotalViews + rows[j].TotalClicks
		if left != right {
			return left > right
		}
		return rows[i].ListingName < rows[j].ListingName
	})
}

// SplitEvenly distributes total across parts with floor division; the remainder is discarded.
func SplitEvenly(total int64, parts int) int64 {
	if parts <= 0 {
		return 0
	}
	return total / int64(parts)
}
