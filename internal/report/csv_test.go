package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/report"
)

func TestWriteAnalyticsCSV(t *testing.T) {
	facebookURLID := "fb-1"
	rows := []model.Analytics{
		{MetricDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Views: 10, Clicks: 2},
		{
			MetricDate:    time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
			Views:         5,
			Clicks:        1,
			FacebookURLID: &facebookURLID,
			FacebookURL:   &model.FacebookURL{ID: facebookURLID, URL: testFacebookURLOne},
		},
	}

	var buffer bytes.Buffer
	require.NoError(t, report.WriteAnalyticsCSV(&buffer, "Main, St", testGeneratedAt, rows))

	expected := "\"Listing Analytics: Main, St\"\n" +
		"\"Generated: March 4, 2024\"\n" +
		"\n" +
		"Date,Views,Clicks,Facebook URL\n" +
		"2024-03-01,10,2,General\n" +
		"2024-03-02,5,1," + testFacebookURLOne + "\n"
	require.Equal(t, expected, buffer.String())
}

func TestWriteAnalyticsCSVWithoutRows(t *testing.T) {
	var buffer bytes.Buffer
	require.ErrorIs(t, report.WriteAnalyticsCSV(&buffer, "Listing", testGeneratedAt, nil), report.ErrNoAnalytics)
	require.Zero(t, buffer.Len())
}

func TestAnalyticsCSVFilename(t *testing.T) {
	require.Equal(t, "Main_St__4_analytics.csv", report.AnalyticsCSVFilename("Main St #4"))
}
