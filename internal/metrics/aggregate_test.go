package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

func TestSummarizePortfolioCountsListingsAndLegacyAnalytics(t *testing.T) {
	listings := []model.Listing{
		{ID: "a", IsActive: true},
		{ID: "b", IsActive: false},
		{ID: "c", IsActive: true},
	}
	analytics := []model.Analytics{
		{ListingID: "a", MetricDate: testDate(1), Views: 10, Clicks: 1},
		{ListingID: "b", MetricDate: testDate(2), Views: 5, Clicks: 2, FacebookURLID: stringPointer("url")},
		{ListingID: "deleted", MetricDate: testDate(2), Views: 1000, Clicks: 1000},
	}

	summary := SummarizePortfolio(listings, analytics)
	require.Equal(t, PortfolioSummary{TotalViews: 15, TotalClicks: 3, ActiveListings: 2, TotalListings: 3}, summary)
	require.LessOrEqual(t, summary.ActiveListings, summary.TotalListings)

	empty := SummarizePortfolio(nil, nil)
	require.Equal(t, PortfolioSummary{}, empty)
}

func TestTrendGroupsByDateAscendingWithoutGaps(t *testing.T) {
	analytics := []model.Analytics{
		{ListingID: "a", MetricDate: testDate(5), Views: 1, Clicks: 1},
		{ListingID: "a", MetricDate: testDate(1), Views: 10, Clicks: 2},
		{ListingID: "b", MetricDate: testDate(1), Views: 20, Clicks: 3},
	}

	points := Trend(analytics)
	require.Len(t, points, 2)
	require.Equal(t, "2024-01-01", points[0].Day)
	require.Equal(t, int64(30), points[0].Views)
	require.Equal(t, int64(5), points[0].Clicks)
	require.Equal(t, "2024-01-05", points[1].Day)
	require.Equal(t, int64(1), points[1].Views)

	require.Empty(t, Trend(nil))
}

func TestBuildPerformanceRowsPreservesListingOrder(t *testing.T) {
	listings := []model.Listing{
		{ID: "a", Name: "Alpha", IsActive: true},
		{ID: "b", Name: "Beta"},
	}
	analytics := []model.Analytics{
		{ListingID: "b", Views: 50, Clicks: 5},
		{ListingID: "a", Views: 3, Clicks: 1},
		{ListingID: "b", Views: 10},
	}

	rows := BuildPerformanceRows(listings, analytics, map[string]int64{"b": 2})
	require.Equal(t, []PerformanceRow{
		{ListingID: "a", ListingName: "Alpha", IsActive: true, TotalViews: 3, TotalClicks: 1},
		{ListingID: "b", ListingName: "Beta", TotalViews: 60, TotalClicks: 5, FacebookPostCount: 2},
	}, rows)

	SortPerformanceRows(rows)
	require.Equal(t, "b", rows[0].ListingID)
}

func TestSplitEvenlyDiscardsRemainder(t *testing.T) {
	testCases := []struct {
		name     string
		total    int64
		parts    int
		expected int64
	}{
		{name: "even", total: 90, parts: 3, expected: 30},
		{name: "remainder", total: 100, parts: 3, expected: 33},
		{name: "no parts", total: 100, parts: 0, expected: 0},
		{name: "fewer views than parts", total: 2, parts: 3, expected: 0},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingT *testing.T) {
			require.Equal(testingT, testCase.expected, SplitEvenly(testCase.total, testCase.parts))
		})
	}
}
