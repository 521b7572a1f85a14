package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMetricDateTruncatesToUTCMidnight(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected time.Time
	}{
		{name: "iso date", raw: "2024-03-05", expected: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "timestamp", raw: "2024-03-05T17:45:00Z", expected: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "us layout", raw: "03/05/2024", expected: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingT *testing.T) {
			parsed, err := ParseMetricDate(testCase.raw)
			require.NoError(testingT, err)
			require.True(testingT, testCase.expected.Equal(parsed))
		})
	}

	_, err := ParseMetricDate("")
	require.ErrorIs(t, err, ErrInvalidMetricDate)
	_, err = ParseMetricDate("not a date")
	require.ErrorIs(t, err, ErrInvalidMetricDate)
}

func TestNewAnalyticsGeneralAndAttributed(t *testing.T) {
	general, err := NewAnalytics(AnalyticsInput{ListingID: "listing-1", MetricDate: "2024-01-02", Views: 10, Clicks: 2})
	require.NoError(t, err)
	require.Nil(t, general.FacebookURLID)

	attributed, err := NewAnalytics(AnalyticsInput{ListingID: "listing-1", FacebookURLID: "url-1", MetricDate: "2024-01-02"})
	require.NoError(t, err)
	require.NotNil(t, attributed.FacebookURLID)
	require.Equal(t, "url-1", *attributed.FacebookURLID)

	_, err = NewAnalytics(AnalyticsInput{ListingID: "listing-1", MetricDate: "2024-01-02", Views: -1})
	require.ErrorIs(t, err, ErrNegativeMetric)

	_, err = NewAnalytics(AnalyticsInput{MetricDate: "2024-01-02"})
	require.ErrorIs(t, err, ErrInvalidListingID)
}

func TestNewPlatformMetricValidatesPlatform(t *testing.T) {
	views := int64(12)
	metric, err := NewPlatformMetric(PlatformMetricInput{ListingID: "listing-1", Platform: " HAR ", MetricDate: "2024-01-02", Views: &views})
	require.NoError(t, err)
	require.Equal(t, PlatformHAR, metric.Platform)
	require.Nil(t, metric.Leads)

	_, err = NewPlatformMetric(PlatformMetricInput{ListingID: "listing-1", Platform: "redfin", MetricDate: "2024-01-02"})
	require.ErrorIs(t, err, ErrInvalidPlatform)

	negative := int64(-3)
	_, err = NewPlatformMetric(PlatformMetricInput{ListingID: "listing-1", Platform: "zillow", MetricDate: "2024-01-02", Leads: &negative})
	require.ErrorIs(t, err, ErrNegativeMetric)
}

func TestNewFacebookMetricRequiresParentURL(t *testing.T) {
	impressions := int64(300)
	metric, err := NewFacebookMetric(FacebookMetricInput{FacebookURLID: "url-1", MetricDate: "2024-01-02", Impressions: &impressions})
	require.NoError(t, err)
	require.Equal(t, int64(300), ValueOrZero(metric.Impressions))
	require.Equal(t, int64(0), ValueOrZero(metric.Reach))

	_, err = NewFacebookMetric(FacebookMetricInput{MetricDate: "2024-01-02"})
	require.ErrorIs(t, err, ErrInvalidFacebookURLID)
}
