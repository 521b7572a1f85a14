package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

const (
	errorMessageMissingOwner  = "storage: missing owner"
	errorMessageNotFound      = "storage: record not found"
	errorMessageOwnerMismatch = "storage: owner mismatch"
)

var (
	// ErrMissingOwner indicates a call was made without a caller identity.
	ErrMissingOwner = errors.New(errorMessageMissingOwner)
	// ErrNotFound indicates the record does not exist, is soft-deleted, or belongs to another owner.
	ErrNotFound = errors.New(errorMessageNotFound)
	// ErrOwnerMismatch indicates a record was submitted under an owner other than the caller.
	ErrOwnerMismatch = errors.New(errorMessageOwnerMismatch)
)

// DateRange bounds metric queries by metric date, inclusive on both ends. Zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (dateRange DateRange) apply(query *gorm.DB, column string) *gorm.DB {
	if !dateRange.Start.IsZero() {
		query = query.Where(column+" >= ?", model.TruncateToDay(dateRange.Start))
	}
	if !dateRange.End.IsZero() {
		query = query.Where(column+" <= ?", model.TruncateToDay(dateRange.End))
	}
	return query
}

// Store provides owner-scoped persistence for listings and their metric rows.
// Every method requires the caller's owner identifier.
type Store struct {
	database *gorm.DB
}

// NewStore builds a Store over an open database.
func NewStore(database *gorm.DB) *Store {
	return &Store{database: database}
}

func (store *Store) session(ctx context.Context) *gorm.DB {
	return store.database.WithContext(ctx)
}

func requireOwner(ownerID string) (string, error) {
	normalized := model.NormalizeOwnerID(ownerID)
	if normalized == "" {
		return "", ErrMissingOwner
	}
	return normalized, nil
}

func (store *Store) ownedListingIDs(ctx context.Context, ownerID string) *gorm.DB {
	return store.session(ctx).Model(&model.Listing{}).Select("id").Where("owner_id = ? AND deleted_at IS NULL", ownerID)
}

// ListListings returns the caller's non-deleted listings, newest first.
func (store *Store) ListListings(ctx context.Context, ownerID string) ([]model.Listing, error) {
	owner, ownerErr := requireOwner(ownerID)
	if ownerErr != nil {
		return nil, ownerErr
	}
	var listings []model.Listing
	if err := store.session(ctx).Where("owner_id = ?", owner).Order("created_at desc").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// GetListing loads one non-deleted listing owned by the caller.
func (store *Store) GetListing(ctx context.Context, ownerID string, listingID string) (model.Listing, error) {
	owner, ownerErr := requireOwner(ownerID)
	if ownerErr != nil {
		return model.Listing{}, ownerErr
	}
	var listing model.Listing
	err := store.session(ctx).Where("id = ? AND owner_id = ?", strings.TrimSpace(listingID), owner).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Listing{}, ErrNotFound
		}
		return model.Listing{}, err
	}
	return listing, nil
}

// CreateListing persists a new listing for the caller.
func (store *Store) CreateListing(ctx context.Context, ownerID string, listing model.Listing) (model.Listing, error) {
	owner, ownerErr := requireOwner(ownerID)
	if ownerErr != nil {
		return model.Listing{}, ownerErr
	}
	if listing.OwnerID != owner {
		return model.Listing{}, ErrOwnerMismatch
	}
	if err := store.session(ctx).Create(&listing).Error; err != nil {
		return model.Listing{}, err
	}
	return listing, nil
}

// SaveListing writes the mutable fields of an existing listing owned by the caller.
func (store *Store) SaveListing(ctx context.Context, ownerID string, listing model.Listing) (model.Listing, error) {
	existing, loadErr := store.GetListing(ctx, ownerID, listing.ID)
	if loadErr != nil {
		return model.Listing{}, loadErr
	}
	updates := map[string]any{
		"name":               listing.Name,
		"har_url":            listing.HARURL,
		"realtor_url":        listing.RealtorURL,
		"zillow_url":         listing.ZillowURL,
		"is_active":          listing.IsActive,
		"har_desktop_views":  listing.HARDesktopViews,
		"har_mobile_views":   listing.HARMobileViews,
		"har_photo_views":    listing.HARPhotoViews,
		"har_days_on_market": listing.HARDaysOnMarket,
		"har_status":         listing.HARStatus,
	}
	if err := store.session(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return model.Listing{}, err
	}
	return store.GetListing(ctx, ownerID, listing.ID)
}

// UpdateListingImage records the uploaded image reference for a listing.
func (store *Store) UpdateListingImage(ctx context.Context, ownerID string, listingID string, imageURL string, imageKey string) (model.Listing, error) {
	existing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return model.Listing{}, loadErr
	}
	updates := map[string]any{"image_url": imageURL, "image_key": imageKey}
	if err := store.session(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return model.Listing{}, err
	}
	return store.GetListing(ctx, ownerID, listingID)
}

// SoftDeleteListing marks a listing deleted. Rows are never physically removed.
func (store *Store) SoftDeleteListing(ctx context.Context, ownerID string, listingID string) error {
	existing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return loadErr
	}
	return store.session(ctx).Delete(&existing).Error
}

// ListFacebookURLs returns the tracked Facebook URLs for a listing.
func (store *Store) ListFacebookURLs(ctx context.Context, ownerID string, listingID string) ([]model.FacebookURL, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return nil, loadErr
	}
	var urls []model.FacebookURL
	if err := store.session(ctx).Where("listing_id = ?", listing.ID).Order("created_at asc").Find(&urls).Error; err != nil {
		return nil, err
	}
	return urls, nil
}

// CountFacebookEntries returns, per listing of the caller, the number of Facebook URLs plus Facebook posts.
func (store *Store) CountFacebookEntries(ctx context.Context, ownerID string) (map[string]int64, error) {
	owner, ownerErr := requireOwner(ownerID)
	if ownerErr != nil {
		return nil, ownerErr
	}
	type listingCount struct {
		ListingID string
		Total     int64
	}
	counts := make(map[string]int64)
	for _, entity := range []any{&model.FacebookURL{}, &model.FacebookPost{}} {
		var rows []listingCount
		err := store.session(ctx).
			Model(entity).
			Select("listing_id, COUNT(*) as total").
			Where("listing_id IN (?)", store.ownedListingIDs(ctx, owner)).
			Group("listing_id").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			counts[row.ListingID] += row.Total
		}
	}
	return counts, nil
}

// CreateFacebookURL attaches a Facebook URL to a listing of the caller.
func (store *Store) CreateFacebookURL(ctx context.Context, ownerID string, facebookURL model.FacebookURL) (model.FacebookURL, error) {
	if _, loadErr := store.GetListing(ctx, ownerID, facebookURL.ListingID); loadErr != nil {
		return model.FacebookURL{}, loadErr
	}
	if err := store.session(ctx).Create(&facebookURL).Error; err != nil {
		return model.FacebookURL{}, err
	}
	return facebookURL, nil
}

func (store *Store) getFacebookURL(ctx context.Context, ownerID string, listingID string, facebookURLID string) (model.FacebookURL, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return model.FacebookURL{}, loadErr
	}
	var facebookURL model.FacebookURL
	err := store.session(ctx).Where("id = ? AND listing_id = ?", strings.TrimSpace(facebookURLID), listing.ID).First(&facebookURL).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.FacebookURL{}, ErrNotFound
		}
		return model.FacebookURL{}, err
	}
	return facebookURL, nil
}

// DeleteFacebookURL removes a tracked URL and its daily metrics.
// Analytics rows attributed to it are kept and become general entries.
func (store *Store) DeleteFacebookURL(ctx context.Context, ownerID string, listingID string, facebookURLID string) error {
	facebookURL, loadErr := store.getFacebookURL(ctx, ownerID, listingID, facebookURLID)
	if loadErr != nil {
		return loadErr
	}
	return store.session(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Model(&model.Analytics{}).Where("facebook_url_id = ?", facebookURL.ID).Update("facebook_url_id", nil).Error; err != nil {
			return err
		}
		if err := transaction.Where("facebook_url_id = ?", facebookURL.ID).Delete(&model.FacebookMetric{}).Error; err != nil {
			return err
		}
		return transaction.Delete(&facebookURL).Error
	})
}

// ListFacebookPosts returns the simplified Facebook posts of a listing.
func (store *Store) ListFacebookPosts(ctx context.Context, ownerID string, listingID string) ([]model.FacebookPost, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return nil, loadErr
	}
	var posts []model.FacebookPost
	if err := store.session(ctx).Where("listing_id = ?", listing.ID).Order("created_at asc").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// GetFacebookPost loads one Facebook post of a listing of the caller.
func (store *Store) GetFacebookPost(ctx context.Context, ownerID string, listingID string, postID string) (model.FacebookPost, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return model.FacebookPost{}, loadErr
	}
	var post model.FacebookPost
	err := store.session(ctx).Where("id = ? AND listing_id = ?", strings.TrimSpace(postID), listing.ID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.FacebookPost{}, ErrNotFound
		}
		return model.FacebookPost{}, err
	}
	return post, nil
}

// CreateFacebookPost attaches a Facebook post to a listing of the caller.
func (store *Store) CreateFacebookPost(ctx context.Context, ownerID string, post model.FacebookPost) (model.FacebookPost, error) {
	if _, loadErr := store.GetListing(ctx, ownerID, post.ListingID); loadErr != nil {
		return model.FacebookPost{}, loadErr
	}
	if err := store.session(ctx).Create(&post).Error; err != nil {
		return model.FacebookPost{}, err
	}
	return post, nil
}

// SaveFacebookPost overwrites the URL and view snapshot of an existing post.
func (store *Store) SaveFacebookPost(ctx context.Context, ownerID string, post model.FacebookPost) (model.FacebookPost, error) {
	existing, loadErr := store.GetFacebookPost(ctx, ownerID, post.ListingID, post.ID)
	if loadErr != nil {
		return model.FacebookPost{}, loadErr
	}
	updates := map[string]any{"url": post.URL, "views": post.Views}
	if err := store.session(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return model.FacebookPost{}, err
	}
	return store.GetFacebookPost(ctx, ownerID, post.ListingID, post.ID)
}

// DeleteFacebookPost removes a Facebook post.
func (store *Store) DeleteFacebookPost(ctx context.Context, ownerID string, listingID string, postID string) error {
	post, loadErr := store.GetFacebookPost(ctx, ownerID, listingID, postID)
	if loadErr != nil {
		return loadErr
	}
	return store.session(ctx).Delete(&post).Error
}

// ListAnalytics returns a listing's analytics rows ordered by metric date, with their Facebook URL loaded.
func (store *Store) ListAnalytics(ctx context.Context, ownerID string, listingID string, dateRange DateRange) ([]model.Analytics, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return nil, loadErr
	}
	query := store.session(ctx).Preload("FacebookURL").Where("listing_id = ?", listing.ID)
	query = dateRange.apply(query, "metric_date")
	var rows []model.Analytics
	if err := query.Order("metric_date asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOwnerAnalytics returns analytics rows across all of the caller's non-deleted listings.
func (store *Store) ListOwnerAnalytics(ctx context.Context, ownerID string, dateRange DateRange) ([]model.Analytics, error) {
	owner, ownerErr := requireOwner(ownerID)
	if ownerErr != nil {
		return nil, ownerErr
	}
	query := store.session(ctx).Where("listing_id IN (?)", store.ownedListingIDs(ctx, owner))
	query = dateRange.apply(query, "metric_date")
	var rows []model.Analytics
	if err := query.Order("metric_date asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertAnalytics inserts or replaces the analytics row keyed by listing, Facebook URL and date.
func (store *Store) UpsertAnalytics(ctx context.Context, ownerID string, analytics model.Analytics) (model.Analytics, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, analytics.ListingID)
	if loadErr != nil {
		return model.Analytics{}, loadErr
	}
	query := store.session(ctx).Where("listing_id = ? AND metric_date = ?", listing.ID, analytics.MetricDate)
	if analytics.FacebookURLID == nil {
		query = query.Where("facebook_url_id IS NULL")
	} else {
		if _, urlErr := store.getFacebookURL(ctx, ownerID, listing.ID, *analytics.FacebookURLID); urlErr != nil {
			return model.Analytics{}, urlErr
		}
		query = query.Where("facebook_url_id = ?", *analytics.FacebookURLID)
	}
	// The lookup destination has no primary key so gorm matches on the natural key only.
	var stored model.Analytics
	creation := model.Analytics{
		ID:            analytics.ID,
		ListingID:     listing.ID,
		FacebookURLID: analytics.FacebookURLID,
		MetricDate:    analytics.MetricDate,
	}
	assignments := map[string]any{"views": analytics.Views, "clicks": analytics.Clicks}
	if err := query.Attrs(creation).Assign(assignments).FirstOrCreate(&stored).Error; err != nil {
		return model.Analytics{}, err
	}
	return stored, nil
}

// DeleteAnalytics removes one analytics row of a listing of the caller.
func (store *Store) DeleteAnalytics(ctx context.Context, ownerID string, listingID string, analyticsID string) error {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return loadErr
	}
	return deleteChildRow(store.session(ctx).Where("id = ? AND listing_id = ?", analyticsID, listing.ID), &model.Analytics{})
}

// ListPlatformMetrics returns a listing's platform metric rows ordered by date.
func (store *Store) ListPlatformMetrics(ctx context.Context, ownerID string, listingID string) ([]model.PlatformMetric, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return nil, loadErr
	}
	var rows []model.PlatformMetric
	if err := store.session(ctx).Where("listing_id = ?", listing.ID).Order("metric_date asc, platform asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertPlatformMetric inserts or replaces the row keyed by listing, platform and date.
func (store *Store) UpsertPlatformMetric(ctx context.Context, ownerID string, metric model.PlatformMetric) (model.PlatformMetric, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, metric.ListingID)
	if loadErr != nil {
		return model.PlatformMetric{}, loadErr
	}
	err := store.session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}, {Name: "platform"}, {Name: "metric_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"views", "saves", "shares", "leads", "updated_at"}),
	}).Create(&metric).Error
	if err != nil {
		return model.PlatformMetric{}, err
	}
	var stored model.PlatformMetric
	err = store.session(ctx).
		Where("listing_id = ? AND platform = ? AND metric_date = ?", listing.ID, metric.Platform, metric.MetricDate).
		First(&stored).Error
	if err != nil {
		return model.PlatformMetric{}, err
	}
	return stored, nil
}

// DeletePlatformMetric removes one platform metric row of a listing of the caller.
func (store *Store) DeletePlatformMetric(ctx context.Context, ownerID string, listingID string, metricID string) error {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return loadErr
	}
	return deleteChildRow(store.session(ctx).Where("id = ? AND listing_id = ?", metricID, listing.ID), &model.PlatformMetric{})
}

// ListFacebookMetrics returns the daily Facebook metrics of every tracked URL of a listing.
func (store *Store) ListFacebookMetrics(ctx context.Context, ownerID string, listingID string) ([]model.FacebookMetric, error) {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return nil, loadErr
	}
	urlIDs := store.session(ctx).Model(&model.FacebookURL{}).Select("id").Where("listing_id = ?", listing.ID)
	var rows []model.FacebookMetric
	if err := store.session(ctx).Where("facebook_url_id IN (?)", urlIDs).Order("metric_date asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListFacebookURLMetrics returns the daily metrics of one tracked URL.
func (store *Store) ListFacebookURLMetrics(ctx context.Context, ownerID string, listingID string, facebookURLID string) ([]model.FacebookMetric, error) {
	facebookURL, loadErr := store.getFacebookURL(ctx, ownerID, listingID, facebookURLID)
	if loadErr != nil {
		return nil, loadErr
	}
	var rows []model.FacebookMetric
	if err := store.session(ctx).Where("facebook_url_id = ?", facebookURL.ID).Order("metric_date asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertFacebookMetric inserts or replaces the row keyed by Facebook URL and date.
func (store *Store) UpsertFacebookMetric(ctx context.Context, ownerID string, listingID string, metric model.FacebookMetric) (model.FacebookMetric, error) {
	facebookURL, loadErr := store.getFacebookURL(ctx, ownerID, listingID, metric.FacebookURLID)
	if loadErr != nil {
		return model.FacebookMetric{}, loadErr
	}
	err := store.session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "facebook_url_id"}, {Name: "metric_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"impressions", "reach", "post_clicks", "reactions", "comments", "shares", "updated_at"}),
	}).Create(&metric).Error
	if err != nil {
		return model.FacebookMetric{}, err
	}
	var stored model.FacebookMetric
	err = store.session(ctx).Where("facebook_url_id = ? AND metric_date = ?", facebookURL.ID, metric.MetricDate).First(&stored).Error
	if err != nil {
		return model.FacebookMetric{}, err
	}
	return stored, nil
}

// DeleteFacebookMetric removes one Facebook metric row belonging to a listing of the caller.
func (store *Store) DeleteFacebookMetric(ctx context.Context, ownerID string, listingID string, metricID string) error {
	listing, loadErr := store.GetListing(ctx, ownerID, listingID)
	if loadErr != nil {
		return loadErr
	}
	urlIDs := store.session(ctx).Model(&model.FacebookURL{}).Select("id").Where("listing_id = ?", listing.ID)
	return deleteChildRow(store.session(ctx).Where("id = ? AND facebook_url_id IN (?)", metricID, urlIDs), &model.FacebookMetric{})
}

func deleteChildRow(query *gorm.DB, entity any) error {
	result := query.Delete(entity)
	if result.Error != nil {
		return fmt.Errorf("storage: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
