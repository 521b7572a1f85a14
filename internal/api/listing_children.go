package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const (
	paramFacebookURLID    = "url_id"
	paramFacebookPostID   = "post_id"
	paramAnalyticsID      = "analytics_id"
	paramPlatformMetricID = "metric_id"

	queryStart = "start"
	queryEnd   = "end"

	messageMissingURL  = "A Facebook URL is required."
	messageMissingDate = "A metric date is required."

	logEventFacebookURLs    = "facebook_urls"
	logEventFacebookPosts   = "facebook_posts"
	logEventAnalytics       = "analytics"
	logEventPlatformMetrics = "platform_metrics"
	logEventFacebookMetrics = "facebook_metrics"
)

type facebookURLRequest struct {
	URL string `json:"url"`
}

type facebookPostRequest struct {
	URL   *string `json:"url"`
	Views *int64  `json:"views"`
}

type analyticsRequest struct {
	FacebookURLID string `json:"facebook_url_id"`
	MetricDate    string `json:"metric_date"`
	Views         int64  `json:"views"`
	Clicks        int64  `json:"clicks"`
}

type platformMetricRequest struct {
	Platform   string `json:"platform"`
	MetricDate string `json:"metric_date"`
	Views      *int64 `json:"views"`
	Saves      *int64 `json:"saves"`
	Shares     *int64 `json:"shares"`
	Leads      *int64 `json:"leads"`
}

type facebookMetricRequest struct {
	MetricDate  string `json:"metric_date"`
	Impressions *int64 `json:"impressions"`
	Reach       *int64 `json:"reach"`
	PostClicks  *int64 `json:"post_clicks"`
	Reactions   *int64 `json:"reactions"`
	Comments    *int64 `json:"comments"`
	Shares      *int64 `json:"shares"`
}

// dateRangeFromQuery parses optional start/end query bounds.
func dateRangeFromQuery(context *gin.Context) (storage.DateRange, error) {
	var dateRange storage.DateRange
	if rawStart := strings.TrimSpace(context.Query(queryStart)); rawStart != "" {
		start, startErr := model.ParseMetricDate(rawStart)
		if startErr != nil {
			return storage.DateRange{}, startErr
		}
		dateRange.Start = start
	}
	if rawEnd := strings.TrimSpace(context.Query(queryEnd)); rawEnd != "" {
		end, endErr := model.ParseMetricDate(rawEnd)
		if endErr != nil {
			return storage.DateRange{}, endErr
		}
		dateRange.End = end
	}
	return dateRange, nil
}

func (handlers *ListingHandlers) ListFacebookURLs(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	urls, listErr := handlers.store.ListFacebookURLs(context.Request.Context(), ownerID, context.Param(paramListingID))
	if listErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookURLs, listErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, urls)
}

func (handlers *ListingHandlers) CreateFacebookURL(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload facebookURLRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}
	if strings.TrimSpace(payload.URL) == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueMissingFields, jsonKeyMessage: messageMissingURL})
		return
	}
	facebookURL, buildErr := model.NewFacebookURL(context.Param(paramListingID), payload.URL)
	if buildErr != nil {
		respondInvalidInput(context, buildErr)
		return
	}
	created, createErr := handlers.store.CreateFacebookURL(context.Request.Context(), ownerID, facebookURL)
	if createErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookURLs, createErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusCreated, created)
}

// DeleteFacebookURL removes the URL and its metrics; attributed analytics become general entries.
func (handlers *ListingHandlers) DeleteFacebookURL(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	deleteErr := handlers.store.DeleteFacebookURL(context.Request.Context(), ownerID, context.Param(paramListingID), context.Param(paramFacebookURLID))
	if deleteErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookURLs, deleteErr, errorValueDeleteFailed)
		return
	}
	context.Status(http.StatusNoContent)
}

func (handlers *ListingHandlers) ListFacebookPosts(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	posts, listErr := handlers.store.ListFacebookPosts(context.Request.Context(), ownerID, context.Param(paramListingID))
	if listErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookPosts, listErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, posts)
}

func (handlers *ListingHandlers) CreateFacebookPost(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload facebookPostRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}
	if payload.URL == nil || strings.TrimSpace(*payload.URL) == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueMissingFields, jsonKeyMessage: messageMissingURL})
		return
	}
	post, buildErr := model.NewFacebookPost(model.FacebookPostInput{
		ListingID: context.Param(paramListingID),
		URL:       payload.URL,
		Views:     payload.Views,
	})
	if buildErr != nil {
		respondInvalidInput(context, buildErr)
		return
	}
	created, createErr := handlers.store.CreateFacebookPost(context.Request.Context(), ownerID, post)
	if createErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookPosts, createErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusCreated, created)
}

// UpdateFacebookPost edits a post; an omitted field keeps its stored value and views replace, never add.
func (handlers *ListingHandlers) UpdateFacebookPost(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload facebookPostRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}
	requestContext := context.Request.Context()
	post, loadErr := handlers.store.GetFacebookPost(requestContext, ownerID, context.Param(paramListingID), context.Param(paramFacebookPostID))
	if loadErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookPosts, loadErr, errorValueQueryFailed)
		return
	}
	if editErr := post.ApplyEdit(model.FacebookPostInput{URL: payload.URL, Views: payload.Views}); editErr != nil {
		respondInvalidInput(context, editErr)
		return
	}
	saved, saveErr := handlers.store.SaveFacebookPost(requestContext, ownerID, post)
	if saveErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookPosts, saveErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusOK, saved)
}

func (handlers *ListingHandlers) DeleteFacebookPost(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	deleteErr := handlers.store.DeleteFacebookPost(context.Request.Context(), ownerID, context.Param(paramListingID), context.Param(paramFacebookPostID))
	if deleteErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookPosts, deleteErr, errorValueDeleteFailed)
		return
	}
	context.Status(http.StatusNoContent)
}

func (handlers *ListingHandlers) ListAnalytics(context *gin.Context) {
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
		respondStoreError(context, handlers.logger, logEventAnalytics, listErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, rows)
}

// UpsertAnalytics creates or replaces the entry for (listing, Facebook URL or general, date).
func (handlers *ListingHandlers) UpsertAnalytics(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload analyticsRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}
	if strings.TrimSpace(payload.MetricDate) == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueMissingFields, jsonKeyMessage: messageMissingDate})
		return
	}
	analytics, buildErr := model.NewAnalytics(model.AnalyticsInput{
		ListingID:     context.Param(paramListingID),
		FacebookURLID: payload.FacebookURLID,
		MetricDate:    payload.MetricDate,
		Views:         payload.Views,
		Clicks:        payload.Clicks,
	})
	if buildErr != nil {
		respondInvalidInput(context, buildErr)
		return
	}
	stored, upsertErr := handlers.store.UpsertAnalytics(context.Request.Context(), ownerID, analytics)
	if upsertErr != nil {
		respondStoreError(context, handlers.logger, logEventAnalytics, upsertErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusOK, stored)
}

func (handlers *ListingHandlers) DeleteAnalytics(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	deleteErr := handlers.store.DeleteAnalytics(context.Request.Context(), ownerID, context.Param(paramListingID), context.Param(paramAnalyticsID))
	if deleteErr != nil {
		respondStoreError(context, handlers.logger, logEventAnalytics, deleteErr, errorValueDeleteFailed)
		return
	}
	context.Status(http.StatusNoContent)
}

func (handlers *ListingHandlers) ListPlatformMetrics(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	rows, listErr := handlers.store.ListPlatformMetrics(context.Request.Context(), ownerID, context.Param(paramListingID))
	if listErr != nil {
		respondStoreError(context, handlers.logger, logEventPlatformMetrics, listErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, rows)
}

func (handlers *ListingHandlers) UpsertPlatformMetric(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload platformMetricRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}
	if strings.TrimSpace(payload.MetricDate) == "" || strings.TrimSpace(payload.Platform) == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueMissingFields})
		return
	}
	metric, buildErr := model.NewPlatformMetric(model.PlatformMetricInput{
		ListingID:  context.Param(paramListingID),
		Platform:   payload.Platform,
		MetricDate: payload.MetricDate,
		Views:      payload.Views,
		Saves:      payload.Saves,
		Shares:     payload.Shares,
		Leads:      payload.Leads,
	})
	if buildErr != nil {
		respondInvalidInput(context, buildErr)
		return
	}
	stored, upsertErr := handlers.store.UpsertPlatformMetric(context.Request.Context(), ownerID, metric)
	if upsertErr != nil {
		respondStoreError(context, handlers.logger, logEventPlatformMetrics, upsertErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusOK, stored)
}

func (handlers *ListingHandlers) DeletePlatformMetric(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	deleteErr := handlers.store.DeletePlatformMetric(context.Request.Context(), ownerID, context.Param(paramListingID), context.Param(paramPlatformMetricID))
	if deleteErr != nil {
		respondStoreError(context, handlers.logger, logEventPlatformMetrics, deleteErr, errorValueDeleteFailed)
		return
	}
	context.Status(http.StatusNoContent)
}

func (handlers *ListingHandlers) ListFacebookURLMetrics(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	rows, listErr := handlers.store.ListFacebookURLMetrics(context.Request.Context(), ownerID, context.Param(paramListingID), context.Param(paramFacebookURLID))
	if listErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookMetrics, listErr, errorValueQueryFailed)
		return
	}
	context.JSON(http.StatusOK, rows)
}

func (handlers *ListingHandlers) UpsertFacebookMetric(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload facebookMetricRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}
	if strings.TrimSpace(payload.MetricDate) == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueMissingFields, jsonKeyMessage: messageMissingDate})
		return
	}
	metric, buildErr := model.NewFacebookMetric(model.FacebookMetricInput{
		FacebookURLID: context.Param(paramFacebookURLID),
		MetricDate:    payload.MetricDate,
		Impressions:   payload.Impressions,
		Reach:         payload.Reach,
		PostClicks:    payload.PostClicks,
		Reactions:     payload.Reactions,
		Comments:      payload.Comments,
		Shares:        payload.Shares,
	})
	if buildErr != nil {
		respondInvalidInput(context, buildErr)
		return
	}
	stored, upsertErr := handlers.store.UpsertFacebookMetric(context.Request.Context(), ownerID, context.Param(paramListingID), metric)
	if upsertErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookMetrics, upsertErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusOK, stored)
}

func (handlers *ListingHandlers) DeleteFacebookMetric(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	deleteErr := handlers.store.DeleteFacebookMetric(context.Request.Context(), ownerID, context.Param(paramListingID), context.Param(paramPlatformMetricID))
	if deleteErr != nil {
		respondStoreError(context, handlers.logger, logEventFacebookMetrics, deleteErr, errorValueDeleteFailed)
		return
	}
	context.Status(http.StatusNoContent)
}
