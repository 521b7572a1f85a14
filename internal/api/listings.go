package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/metrics"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/objectstore"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/report"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const (
	jsonKeyEmail   = "email"
	jsonKeyName    = "name"
	jsonKeyPicture = "picture_url"

	paramListingID     = "id"
	formFieldImage     = "image"
	messageMissingName = "Listing name is required."
	messageNoImageFile = "An image file is required."

	logEventListListings   = "list_listings"
	logEventLoadListing    = "load_listing"
	logEventCreateListing  = "create_listing"
	logEventUpdateListing  = "update_listing"
	logEventDeleteListing  = "delete_listing"
	logEventUploadImage    = "upload_listing_image"
	logEventDeleteOldImage = "delete_previous_listing_image"
)

// ListingHandlers serves listing CRUD, metric child rows and listing insights.
type ListingHandlers struct {
	store      *storage.Store
	normalizer *metrics.Normalizer
	imageStore objectstore.ImageStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewListingHandlers wires listing handlers. A nil imageStore disables image uploads.
func NewListingHandlers(store *storage.Store, imageStore objectstore.ImageStore, logger *zap.Logger) *ListingHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingHandlers{
		store:      store,
		normalizer: metrics.NewNormalizer(store, logger),
		imageStore: imageStore,
		logger:     logger,
		now:        time.Now,
	}
}

type createListingRequest struct {
	Name       string `json:"name"`
	HARURL     string `json:"har_url"`
	RealtorURL string `json:"realtor_url"`
	ZillowURL  string `json:"zillow_url"`
	IsActive   *bool  `json:"is_active"`
}

type harSnapshotPayload struct {
	DesktopViews *int64 `json:"desktop_views"`
	MobileViews  *int64 `json:"mobile_views"`
	PhotoViews   *int64 `json:"photo_views"`
	DaysOnMarket *int64 `json:"days_on_market"`
	Status       string `json:"status"`
}

type updateListingRequest struct {
	Name        *string             `json:"name"`
	HARURL      *string             `json:"har_url"`
	RealtorURL  *string             `json:"realtor_url"`
	ZillowURL   *string             `json:"zillow_url"`
	IsActive    *bool               `json:"is_active"`
	HARSnapshot *harSnapshotPayload `json:"har_snapshot"`
}

type listingResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	HARURL      string             `json:"har_url"`
	RealtorURL  string             `json:"realtor_url"`
	ZillowURL   string             `json:"zillow_url"`
	ImageURL    string             `json:"image_url"`
	IsActive    bool               `json:"is_active"`
	HARSnapshot harSnapshotPayload `json:"har_snapshot"`
	CreatedAt   int64              `json:"created_at"`
	UpdatedAt   int64              `json:"updated_at"`
}

type listListingsResponse struct {
	Listings    []listingResponse        `json:"listings"`
	Performance []metrics.PerformanceRow `json:"performance"`
}

type listingDetailResponse struct {
	Listing         listingResponse        `json:"listing"`
	FacebookURLs    []model.FacebookURL    `json:"facebook_urls"`
	FacebookPosts   []model.FacebookPost   `json:"facebook_posts"`
	PlatformMetrics []model.PlatformMetric `json:"platform_metrics"`
	Analytics       []model.Analytics      `json:"analytics"`
	Summary         report.Summary         `json:"summary"`
	Breakdown       metrics.Summary        `json:"breakdown"`
	Trend           []metrics.TrendPoint   `json:"trend"`
}

func toListingResponse(listing model.Listing) listingResponse {
	return listingResponse{
		ID:         listing.ID,
		Name:       listing.Name,
		HARURL:     listing.HARURL,
		RealtorURL: listing.RealtorURL,
		ZillowURL:  listing.ZillowURL,
		ImageURL:   listing.ImageURL,
		IsActive:   listing.IsActive,
		HARSnapshot: harSnapshotPayload{
			DesktopViews: listing.HARDesktopViews,
			MobileViews:  listing.HARMobileViews,
			PhotoViews:   listing.HARPhotoViews,
			DaysOnMarket: listing.HARDaysOnMarket,
			Status:       listing.HARStatus,
		},
		CreatedAt: listing.CreatedAt.Unix(),
		UpdatedAt: listing.UpdatedAt.Unix(),
	}
}

func (handlers *ListingHandlers) CurrentUser(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		respondUnauthorized(context)
		return
	}
	context.JSON(http.StatusOK, gin.H{
		jsonKeyEmail:   currentUser.Email,
		jsonKeyName:    currentUser.Name,
		jsonKeyPicture: currentUser.PictureURL,
	})
}

func (handlers *ListingHandlers) ListListings(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
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
		analytics, err = handlers.store.ListOwnerAnalytics(groupContext, ownerID, storage.DateRange{})
		return err
	})
	group.Go(func() error {
		var err error
		facebookCounts, err = handlers.store.CountFacebookEntries(groupContext, ownerID)
		return err
	})
	if err := group.Wait(); err != nil {
		respondStoreError(context, handlers.logger, logEventListListings, err, errorValueQueryFailed)
		return
	}

	responses := make([]listingResponse, 0, len(listings))
	for _, listing := range listings {
		responses = append(responses, toListingResponse(listing))
	}
	context.JSON(http.StatusOK, listListingsResponse{
		Listings:    responses,
		Performance: metrics.BuildPerformanceRows(listings, analytics, facebookCounts),
	})
}

func (handlers *ListingHandlers) CreateListing(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload createListingRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueMissingFields, jsonKeyMessage: messageMissingName})
		return
	}

	listing, buildErr := model.NewListing(model.ListingInput{
		OwnerID:    ownerID,
		Name:       payload.Name,
		HARURL:     payload.HARURL,
		RealtorURL: payload.RealtorURL,
		ZillowURL:  payload.ZillowURL,
		IsActive:   payload.IsActive,
	})
	if buildErr != nil {
		respondInvalidInput(context, buildErr)
		return
	}

	created, createErr := handlers.store.CreateListing(context.Request.Context(), ownerID, listing)
	if createErr != nil {
		respondStoreError(context, handlers.logger, logEventCreateListing, createErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusCreated, toListingResponse(created))
}

// GetListing returns the listing with every child collection and its normalized summary.
func (handlers *ListingHandlers) GetListing(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	requestContext := context.Request.Context()
	listing, loadErr := handlers.store.GetListing(requestContext, ownerID, context.Param(paramListingID))
	if loadErr != nil {
		respondStoreError(context, handlers.logger, logEventLoadListing, loadErr, errorValueQueryFailed)
		return
	}

	var (
		facebookURLs    []model.FacebookURL
		facebookPosts   []model.FacebookPost
		platformMetrics []model.PlatformMetric
		analytics       []model.Analytics
		breakdown       metrics.Summary
	)
	group, groupContext := errgroup.WithContext(requestContext)
	group.Go(func() error {
		var err error
		facebookURLs, err = handlers.store.ListFacebookURLs(groupContext, ownerID, listing.ID)
		return err
	})
	group.Go(func() error {
		var err error
		facebookPosts, err = handlers.store.ListFacebookPosts(groupContext, ownerID, listing.ID)
		return err
	})
	group.Go(func() error {
		var err error
		platformMetrics, err = handlers.store.ListPlatformMetrics(groupContext, ownerID, listing.ID)
		return err
	})
	group.Go(func() error {
		var err error
		analytics, err = handlers.store.ListAnalytics(groupContext, ownerID, listing.ID, storage.DateRange{})
		return err
	})
	group.Go(func() error {
		breakdown = handlers.normalizer.Summarize(groupContext, ownerID, listing)
		return nil
	})
	if err := group.Wait(); err != nil {
		respondStoreError(context, handlers.logger, logEventLoadListing, err, errorValueQueryFailed)
		return
	}

	context.JSON(http.StatusOK, listingDetailResponse{
		Listing:         toListingResponse(listing),
		FacebookURLs:    facebookURLs,
		FacebookPosts:   facebookPosts,
		PlatformMetrics: platformMetrics,
		Analytics:       analytics,
		Summary:         report.FromMetrics(listing, breakdown, handlers.now()),
		Breakdown:       breakdown,
		Trend:           metrics.Trend(analytics),
	})
}

// UpdateListing edits basic info and the HAR snapshot. Omitted fields keep their stored values.
func (handlers *ListingHandlers) UpdateListing(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	var payload updateListingRequest
	if bindErr := context.ShouldBindJSON(&payload); bindErr != nil {
		respondInvalidJSON(context)
		return
	}

	requestContext := context.Request.Context()
	listing, loadErr := handlers.store.GetListing(requestContext, ownerID, context.Param(paramListingID))
	if loadErr != nil {
		respondStoreError(context, handlers.logger, logEventUpdateListing, loadErr, errorValueQueryFailed)
		return
	}

	editInput := model.ListingInput{
		Name:       stringOrDefault(payload.Name, listing.Name),
		HARURL:     stringOrDefault(payload.HARURL, listing.HARURL),
		RealtorURL: stringOrDefault(payload.RealtorURL, listing.RealtorURL),
		ZillowURL:  stringOrDefault(payload.ZillowURL, listing.ZillowURL),
		IsActive:   payload.IsActive,
	}
	if strings.TrimSpace(editInput.Name) == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueMissingFields, jsonKeyMessage: messageMissingName})
		return
	}
	if editErr := listing.ApplyEdit(editInput); editErr != nil {
		respondInvalidInput(context, editErr)
		return
	}
	if payload.HARSnapshot != nil {
		snapshotErr := listing.ApplyHARSnapshot(model.HARSnapshotInput{
			DesktopViews: payload.HARSnapshot.DesktopViews,
			MobileViews:  payload.HARSnapshot.MobileViews,
			PhotoViews:   payload.HARSnapshot.PhotoViews,
			DaysOnMarket: payload.HARSnapshot.DaysOnMarket,
			Status:       payload.HARSnapshot.Status,
		})
		if snapshotErr != nil {
			respondInvalidInput(context, snapshotErr)
			return
		}
	}

	saved, saveErr := handlers.store.SaveListing(requestContext, ownerID, listing)
	if saveErr != nil {
		respondStoreError(context, handlers.logger, logEventUpdateListing, saveErr, errorValueSaveFailed)
		return
	}
	context.JSON(http.StatusOK, toListingResponse(saved))
}

func (handlers *ListingHandlers) DeleteListing(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	if deleteErr := handlers.store.SoftDeleteListing(context.Request.Context(), ownerID, context.Param(paramListingID)); deleteErr != nil {
		respondStoreError(context, handlers.logger, logEventDeleteListing, deleteErr, errorValueDeleteFailed)
		return
	}
	context.Status(http.StatusNoContent)
}

// UploadListingImage stores a multipart image and replaces the listing's image reference.
func (handlers *ListingHandlers) UploadListingImage(context *gin.Context) {
	ownerID, ok := ownerFromContext(context)
	if !ok {
		return
	}
	if handlers.imageStore == nil {
		context.JSON(http.StatusServiceUnavailable, gin.H{jsonKeyError: errorValueStorageUnavailable})
		return
	}

	requestContext := context.Request.Context()
	listing, loadErr := handlers.store.GetListing(requestContext, ownerID, context.Param(paramListingID))
	if loadErr != nil {
		respondStoreError(context, handlers.logger, logEventUploadImage, loadErr, errorValueQueryFailed)
		return
	}

	fileHeader, formErr := context.FormFile(formFieldImage)
	if formErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueMissingFields, jsonKeyMessage: messageNoImageFile})
		return
	}
	file, openErr := fileHeader.Open()
	if openErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueInvalidImage, jsonKeyMessage: openErr.Error()})
		return
	}
	defer file.Close()
	contents, readErr := io.ReadAll(io.LimitReader(file, objectstore.MaxImageBytes+1))
	if readErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueInvalidImage, jsonKeyMessage: readErr.Error()})
		return
	}

	stored, putErr := handlers.imageStore.PutListingImage(requestContext, ownerID, listing.ID, contents)
	if putErr != nil {
		if isImageValidationError(putErr) {
			context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: errorValueInvalidImage, jsonKeyMessage: putErr.Error()})
			return
		}
		handlers.logger.Error(logEventUploadImage, zap.Error(putErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeyError: errorValueSaveFailed, jsonKeyMessage: messageSaveFailed})
		return
	}

	updated, updateErr := handlers.store.UpdateListingImage(requestContext, ownerID, listing.ID, stored.URL, stored.Key)
	if updateErr != nil {
		respondStoreError(context, handlers.logger, logEventUploadImage, updateErr, errorValueSaveFailed)
		return
	}
	if listing.ImageKey != "" && listing.ImageKey != stored.Key {
		if deleteErr := handlers.imageStore.DeleteImage(requestContext, listing.ImageKey); deleteErr != nil {
			handlers.logger.Warn(logEventDeleteOldImage, zap.String("key", listing.ImageKey), zap.Error(deleteErr))
		}
	}
	context.JSON(http.StatusOK, toListingResponse(updated))
}

func isImageValidationError(err error) bool {
	return errors.Is(err, objectstore.ErrEmptyImage) ||
		errors.Is(err, objectstore.ErrImageTooLarge) ||
		errors.Is(err, objectstore.ErrUnsupportedImageType)
}

func stringOrDefault(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
