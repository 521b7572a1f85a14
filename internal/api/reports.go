package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/metrics"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/report"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const (
	pdfContentType  = "application/pdf"
	htmlContentType = "text/html; charset=utf-8"

	logEventRenderPDF       = "render_pdf"
	logEventRenderPrintPage = "render_print_page"
	logEventLoadReport      = "load_report"
	logEventReportDegraded  = "report_degraded"
)

// ReportHandlers serves the PDF download and the print-styled page for a listing.
type ReportHandlers struct {
	store      *storage.Store
	normalizer *metrics.Normalizer
	generator  *report.Generator
	logger     *zap.Logger
	now        func() time.Time
}

func NewReportHandlers(store *storage.Store, generator *report.Generator, logger *zap.Logger) *ReportHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandlers{
		store:      store,
		normalizer: metrics.NewNormalizer(store, logger),
		generator:  generator,
		logger:     logger,
		now:        time.Now,
	}
}

// DownloadPDF renders the listing report to PDF. Missing or deleted listings yield 404.
func (handlers *ReportHandlers) DownloadPDF(context *gin.Context) {
	summary, ok := handlers.loadSummary(context)
	if !ok {
		return
	}
	pdfBytes, renderErr := handlers.generator.PDF(context.Request.Context(), summary)
	if renderErr != nil {
		handlers.logger.Error(logEventRenderPDF, zap.String("listing_id", summary.ListingID), zap.Error(renderErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeyError: errorValueRenderFailed, jsonKeyMessage: messageRenderFailed})
		return
	}
	context.Header(headerContentDisposition, fmt.Sprintf(attachmentDispositionForm, report.PDFFilename(summary.ListingName)))
	context.Data(http.StatusOK, pdfContentType, pdfBytes)
}

// RenderPrintPage serves the print-styled report page.
func (handlers *ReportHandlers) RenderPrintPage(context *gin.Context) {
	summary, ok := handlers.loadSummary(context)
	if !ok {
		return
	}
	page, renderErr := handlers.generator.PrintPage(summary)
	if renderErr != nil {
		handlers.logger.Error(logEventRenderPrintPage, zap.String("listing_id", summary.ListingID), zap.Error(renderErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeyError: errorValueRenderFailed, jsonKeyMessage: messageRenderFailed})
		return
	}
	context.Data(http.StatusOK, htmlContentType, page)
}

func (handlers *ReportHandlers) loadSummary(context *gin.Context) (report.Summary, bool) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return report.Summary{}, false
	}
	requestContext := context.Request.Context()
	listing, loadErr := handlers.store.GetListing(requestContext, ownerID, context.Param(paramListingID))
	if loadErr != nil {
		respondStoreError(context, handlers.logger, logEventLoadReport, loadErr, errorValueQueryFailed)
		return report.Summary{}, false
	}
	breakdown := handlers.normalizer.Summarize(requestContext, ownerID, listing)
	if len(breakdown.Degraded) > 0 {
		handlers.logger.Warn(logEventReportDegraded, zap.String("listing_id", listing.ID), zap.Strings("sources", breakdown.Degraded))
	}
	return report.FromMetrics(listing, breakdown, handlers.now()), true
}
