package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/metrics"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/report"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const (
	csvContentType            = "text/csv; charset=utf-8"
	headerContentDisposition  = "Content-Disposition"
	attachmentDispositionForm = "attachment; filename=%q"

	logEventSummary   = "listing_summary"
	logEventTrend     = "listing_trend"
	logEventDashboard = "dashboard"
	logEventExportCSV = "export_analytics_csv"
)

type listingSummaryResponse struct {
	Summary   report.Summary  `json:"summary"`
	Breakdown metrics.Summary `json:"breakdown"`
}

type dashboardResponse struct {
	Summary     metrics.PortfolioSummary `json:"summary"`
	Performance []metrics.PerformanceRow `json:"performance"`
	Trend       []metrics.TrendPoint     `json:"trend"`
}

// ListingSummary returns the normalized summary that every report surface renders.
func (handlers *ListingHandlers) ListingSummary(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	requestContext := context.Request.Context()
	listing, loadErr := handlers.store.GetListing(requestContext, ownerID, context.Param(paramListingID))
	if loadErr != nil {
		respondStoreError(context, handlers.logger, logEventSummary, loadErr, errorValueQueryFailed)
		return
	}
	breakdown := handlers.normalizer.Summarize(requestContext, ownerID, listing)
	context.JSON(http.StatusOK, listingSummaryResponse{
		Summary:   report.FromMetrics(listing, breakdown, handlers.now()),
		Breakdown: breakdown,
	})
}

func (handlers *ListingHandlers) ListingTrend(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	dateRange, rangeErr := dateRangeFromQuery(context)
	if rangeErr != nil {
		respondInvalidInput(context, rangeErr)
		return
	}
	rows, listErr := handlers.store.ListAnalytics(context.Request.Context(), ownerID, context.Param(paramListingID), dateRange)
	if listErr != nil {
		respondStoreError(context, handlers.logger, logEventTrend, listErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, metrics.Trend(rows))
}

// Dashboard returns the portfolio totals, the ranked performance table and the portfolio trend.
func (handlers *ListingHandlers) Dashboard(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	dateRange, rangeErr := dateRangeFromQuery(context)
	if rangeErr != nil {
		respondInvalidInput(context, rangeErr)
		return
	}

	var (
		listings       []model.Listing
		analytics      []model.Analytics
		facebookCounts map[string]int64
	)
	group, groupContext := errgroup.WithContext(context.Request.Context())
	group.Go(func() error {
		var err error
		listings, err = handlers.store.ListListings(groupContext, ownerID)
		return err
	})
	group.Go(func() error {
		var err error
		analytics, err = handlers.store.ListOwnerAnalytics(groupContext, ownerID, dateRange)
		return err
	})
	group.Go(func() error {
		var err error
		facebookCounts, err = handlers.store.CountFacebookEntries(groupContext, ownerID)
		return err
	})
	if err := group.Wait(); err != nil {
		respondStoreError(context, handlers.logger, logEventDashboard, err, errorValueQueryFailed)
		return
	}

	performance := metrics.BuildPerformanceRows(listings, analytics, facebookCounts)
	metrics.SortPerformanceRows(performance)
	context.JSON(http.StatusOK, dashboardResponse{
		Summary:     metrics.SummarizePortfolio(listings, analytics),
		Performance: performance,
		Trend:       metrics.Trend(analytics),
	})
}

// ExportAnalyticsCSV downloads the listing's analytics entries as CSV.
func (handlers *ListingHandlers) ExportAnalyticsCSV(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	requestContext := context.Request.Context()
	listing, loadErr := handlers.store.GetListing(requestContext, ownerID, context.Param(paramListingID))
	if loadErr != nil {
		respondStoreError(context, handlers.logger, logEventExportCSV, loadErr, errorValueQueryFailed)
		return
	}
	rows, listErr := handlers.store.ListAnalytics(requestContext, ownerID, listing.ID, storage.DateRange{})
	if listErr != nil {
		respondStoreError(context, handlers.logger, logEventExportCSV, listErr, errorValueQueryFailed)
		return
	}

	var buffer bytes.Buffer
	if writeErr := report.WriteAnalyticsCSV(&buffer, listing.Name, handlers.now(), rows); writeErr != nil {
		if errors.Is(writeErr, report.ErrNoAnalytics) {
			context.JSON(http.StatusNotFound, gin.H{jsonKeyError: errorValueNoData, jsonKeyMessage: writeErr.Error()})
			return
		}
		respondStoreError(context, handlers.logger, logEventExportCSV, writeErr, errorValueRenderFailed)
		return
	}
	context.Header(headerContentDisposition, fmt.Sprintf(attachmentDispositionForm, report.AnalyticsCSVFilename(listing.Name)))
	context.Data(http.StatusOK, csvContentType, buffer.Bytes())
}
