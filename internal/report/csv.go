package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

const (
	csvBannerNameFormat = "Listing Analytics: %s"
	csvBannerDateFormat = "Generated: %s"
	csvGeneralLabel     = "General"
	csvDateLayout       = model.MetricDateLayout

	csvColumnDate        = "Date"
	csvColumnViews       = "Views"
	csvColumnClicks      = "Clicks"
	csvColumnFacebookURL = "Facebook URL"
)

// ErrNoAnalytics indicates there are no rows to export.
var ErrNoAnalytics = errors.New("No analytics data to export")

// AnalyticsCSVFilename derives the download name for a listing's analytics export.
func AnalyticsCSVFilename(listingName string) string {
	return nonAlphanumericPattern.ReplaceAllString(listingName, filenameReplacementRune) + "_analytics.csv"
}

// WriteAnalyticsCSV writes the banner, a blank line, the header and one row per analytics entry.
// Rows must have their FacebookURL loaded to show the URL; otherwise they are labeled General.
func WriteAnalyticsCSV(writer io.Writer, listingName string, generatedAt time.Time, rows []model.Analytics) error {
	if len(rows) == 0 {
		return ErrNoAnalytics
	}
	csvWriter := csv.NewWriter(writer)

	records := [][]string{
		{fmt.Sprintf(csvBannerNameFormat, listingName)},
		{fmt.Sprintf(csvBannerDateFormat, FormatReportDate(generatedAt))},
	}
	if err := csvWriter.WriteAll(records); err != nil {
		return err
	}
	if _, err := io.WriteString(writer, "\n"); err != nil {
		return err
	}

	records = [][]string{{csvColumnDate, csvColumnViews, csvColumnClicks, csvColumnFacebookURL}}
	for _, row := range rows {
		label := csvGeneralLabel
		if row.FacebookURLID != nil && row.FacebookURL != nil {
			label = row.FacebookURL.URL
		}
		records = append(records, []string{
			row.MetricDate.Format(csvDateLayout),
			strconv.FormatInt(row.Views, 10),
			strconv.FormatInt(row.Clicks, 10),
			label,
		})
	}
	return csvWriter.WriteAll(records)
}
