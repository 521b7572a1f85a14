package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/testutil"
)

func newTestStore(testingT *testing.T) *storage.Store {
	testingT.Helper()
	return storage.NewStore(testutil.NewMigratedSQLiteDatabase(testingT))
}

func createTestListing(testingT *testing.T, store *storage.Store, ownerID string, name string) model.Listing {
	testingT.Helper()
	listing, err := model.NewListing(model.ListingInput{OwnerID: ownerID, Name: name})
	require.NoError(testingT, err)
	created, err := store.CreateListing(context.Background(), ownerID, listing)
	require.NoError(testingT, err)
	return created
}

func int64Pointer(value int64) *int64 {
	return &value
}

func TestStoreRequiresOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ListListings(ctx, "  ")
	require.ErrorIs(t, err, storage.ErrMissingOwner)
	_, err = store.GetListing(ctx, "", "listing")
	require.ErrorIs(t, err, storage.ErrMissingOwner)
	_, err = store.ListOwnerAnalytics(ctx, "", storage.DateRange{})
	require.ErrorIs(t, err, storage.ErrMissingOwner)
	_, err = store.CountFacebookEntries(ctx, "")
	require.ErrorIs(t, err, storage.ErrMissingOwner)
}

func TestStoreScopesListingsToOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)
	createTestListing(t, store, testOtherOwnerIDValue, "Other listing")

	listings, err := store.ListListings(ctx, testOwnerIDValue)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, listing.ID, listings[0].ID)

	_, err = store.GetListing(ctx, testOtherOwnerIDValue, listing.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	foreignListing, err := model.NewListing(model.ListingInput{OwnerID: testOtherOwnerIDValue, Name: "Foreign"})
	require.NoError(t, err)
	_, err = store.CreateListing(ctx, testOwnerIDValue, foreignListing)
	require.ErrorIs(t, err, storage.ErrOwnerMismatch)
}

func TestStoreSoftDeleteHidesListingAndItsMetrics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)
	kept := createTestListing(t, store, testOwnerIDValue, "Kept listing")

	for _, listingID := range []string{listing.ID, kept.ID} {
		analytics, err := model.NewAnalytics(model.AnalyticsInput{ListingID: listingID, MetricDate: "2024-01-02", Views: 10, Clicks: 1})
		require.NoError(t, err)
		_, err = store.UpsertAnalytics(ctx, testOwnerIDValue, analytics)
		require.NoError(t, err)
	}

	require.NoError(t, store.SoftDeleteListing(ctx, testOwnerIDValue, listing.ID))

	_, err := store.GetListing(ctx, testOwnerIDValue, listing.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	listings, err := store.ListListings(ctx, testOwnerIDValue)
	require.NoError(t, err)
	require.Len(t, listings, 1)

	rows, err := store.ListOwnerAnalytics(ctx, testOwnerIDValue, storage.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, kept.ID, rows[0].ListingID)

	require.ErrorIs(t, store.SoftDeleteListing(ctx, testOwnerIDValue, listing.ID), storage.ErrNotFound)
}

func TestStoreSaveListingPersistsEditAndSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)

	require.NoError(t, listing.ApplyEdit(model.ListingInput{Name: "Renamed 7654321", HARURL: "https://har.com/x"}))
	require.NoError(t, listing.ApplyHARSnapshot(model.HARSnapshotInput{DesktopViews: int64Pointer(100), MobileViews: int64Pointer(40), Status: "Active"}))

	saved, err := store.SaveListing(ctx, testOwnerIDValue, listing)
	require.NoError(t, err)
	require.Equal(t, "Renamed 7654321", saved.Name)
	require.Equal(t, "https://har.com/x", saved.HARURL)
	views, present := saved.SnapshotHARViews()
	require.True(t, present)
	require.Equal(t, int64(140), views)

	updated, err := store.UpdateListingImage(ctx, testOwnerIDValue, listing.ID, "https://cdn.example.com/a.png", "key/a.png")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/a.png", updated.ImageURL)
	require.Equal(t, "Renamed 7654321", updated.Name)

	_, err = store.SaveListing(ctx, testOtherOwnerIDValue, listing)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreUpsertAnalyticsIsIdempotentPerKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)
	facebookURL, err := model.NewFacebookURL(listing.ID, "https://facebook.com/posts/1")
	require.NoError(t, err)
	facebookURL, err = store.CreateFacebookURL(ctx, testOwnerIDValue, facebookURL)
	require.NoError(t, err)

	submissions := []model.AnalyticsInput{
		{ListingID: listing.ID, MetricDate: "2024-01-02", Views: 10, Clicks: 1},
		{ListingID: listing.ID, MetricDate: "2024-01-02", Views: 25, Clicks: 0},
		{ListingID: listing.ID, FacebookURLID: facebookURL.ID, MetricDate: "2024-01-02", Views: 7, Clicks: 3},
		{ListingID: listing.ID, FacebookURLID: facebookURL.ID, MetricDate: "2024-01-02", Views: 9, Clicks: 4},
	}
	for _, submission := range submissions {
		analytics, buildErr := model.NewAnalytics(submission)
		require.NoError(t, buildErr)
		_, upsertErr := store.UpsertAnalytics(ctx, testOwnerIDValue, analytics)
		require.NoError(t, upsertErr)
	}

	rows, err := store.ListAnalytics(ctx, testOwnerIDValue, listing.ID, storage.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, row := range rows {
		if row.FacebookURLID == nil {
			require.Equal(t, int64(25), row.Views)
			require.Equal(t, int64(0), row.Clicks)
			continue
		}
		require.Equal(t, int64(9), row.Views)
		require.Equal(t, int64(4), row.Clicks)
		require.NotNil(t, row.FacebookURL)
		require.Equal(t, facebookURL.URL, row.FacebookURL.URL)
	}
}

func TestStoreUpsertAnalyticsReplacesGeneralRowForSameDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)

	first, err := model.NewAnalytics(model.AnalyticsInput{ListingID: listing.ID, MetricDate: "2024-01-02", Views: 10})
	require.NoError(t, err)
	storedFirst, err := store.UpsertAnalytics(ctx, testOwnerIDValue, first)
	require.NoError(t, err)
	require.Equal(t, first.ID, storedFirst.ID)

	second, err := model.NewAnalytics(model.AnalyticsInput{ListingID: listing.ID, MetricDate: "2024-01-02", Views: 25, Clicks: 2})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	storedSecond, err := store.UpsertAnalytics(ctx, testOwnerIDValue, second)
	require.NoError(t, err)
	require.Equal(t, first.ID, storedSecond.ID)

	rows, err := store.ListAnalytics(ctx, testOwnerIDValue, listing.ID, storage.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, first.ID, rows[0].ID)
	require.Equal(t, int64(25), rows[0].Views)
	require.Equal(t, int64(2), rows[0].Clicks)
}

func TestStoreUpsertAnalyticsRejectsForeignFacebookURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)
	otherListing := createTestListing(t, store, testOwnerIDValue, "Second")
	facebookURL, err := model.NewFacebookURL(otherListing.ID, "https://facebook.com/posts/9")
	require.NoError(t, err)
	facebookURL, err = store.CreateFacebookURL(ctx, testOwnerIDValue, facebookURL)
	require.NoError(t, err)

	analytics, err := model.NewAnalytics(model.AnalyticsInput{ListingID: listing.ID, FacebookURLID: facebookURL.ID, MetricDate: "2024-01-02"})
	require.NoError(t, err)
	_, err = store.UpsertAnalytics(ctx, testOwnerIDValue, analytics)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreListAnalyticsHonorsDateRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)
	for _, date := range []string{"2024-01-01", "2024-01-05", "2024-01-10"} {
		analytics, err := model.NewAnalytics(model.AnalyticsInput{ListingID: listing.ID, MetricDate: date, Views: 1})
		require.NoError(t, err)
		_, err = store.UpsertAnalytics(ctx, testOwnerIDValue, analytics)
		require.NoError(t, err)
	}

	rows, err := store.ListAnalytics(ctx, testOwnerIDValue, listing.ID, storage.DateRange{
		Start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 5, rows[0].MetricDate.Day())
	require.Equal(t, 10, rows[1].MetricDate.Day())
}

func TestStoreDeleteFacebookURLKeepsAnalyticsAsGeneral(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)
	facebookURL, err := model.NewFacebookURL(listing.ID, "https://facebook.com/posts/1")
	require.NoError(t, err)
	facebookURL, err = store.CreateFacebookURL(ctx, testOwnerIDValue, facebookURL)
	require.NoError(t, err)

	analytics, err := model.NewAnalytics(model.AnalyticsInput{ListingID: listing.ID, FacebookURLID: facebookURL.ID, MetricDate: "2024-02-01", Views: 12})
	require.NoError(t, err)
	_, err = store.UpsertAnalytics(ctx, testOwnerIDValue, analytics)
	require.NoError(t, err)

	metric, err := model.NewFacebookMetric(model.FacebookMetricInput{FacebookURLID: facebookURL.ID, MetricDate: "2024-02-01", Impressions: int64Pointer(50)})
	require.NoError(t, err)
	_, err = store.UpsertFacebookMetric(ctx, testOwnerIDValue, listing.ID, metric)
	require.NoError(t, err)

	require.NoError(t, store.DeleteFacebookURL(ctx, testOwnerIDValue, listing.ID, facebookURL.ID))

	rows, err := store.ListAnalytics(ctx, testOwnerIDValue, listing.ID, storage.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].FacebookURLID)
	require.Equal(t, int64(12), rows[0].Views)

	metrics, err := store.ListFacebookMetrics(ctx, testOwnerIDValue, listing.ID)
	require.NoError(t, err)
	require.Empty(t, metrics)

	require.ErrorIs(t, store.DeleteFacebookURL(ctx, testOwnerIDValue, listing.ID, facebookURL.ID), storage.ErrNotFound)
}

func TestStoreUpsertPlatformMetricReplacesValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)

	first, err := model.NewPlatformMetric(model.PlatformMetricInput{ListingID: listing.ID, Platform: "zillow", MetricDate: "2024-03-01", Views: int64Pointer(100), Leads: int64Pointer(2)})
	require.NoError(t, err)
	stored, err := store.UpsertPlatformMetric(ctx, testOwnerIDValue, first)
	require.NoError(t, err)

	second, err := model.NewPlatformMetric(model.PlatformMetricInput{ListingID: listing.ID, Platform: "zillow", MetricDate: "2024-03-01", Views: int64Pointer(150)})
	require.NoError(t, err)
	replaced, err := store.UpsertPlatformMetric(ctx, testOwnerIDValue, second)
	require.NoError(t, err)
	require.Equal(t, stored.ID, replaced.ID)
	require.Equal(t, int64(150), model.ValueOrZero(replaced.Views))
	require.Nil(t, replaced.Leads)

	other, err := model.NewPlatformMetric(model.PlatformMetricInput{ListingID: listing.ID, Platform: "har", MetricDate: "2024-03-01", Views: int64Pointer(5)})
	require.NoError(t, err)
	_, err = store.UpsertPlatformMetric(ctx, testOwnerIDValue, other)
	require.NoError(t, err)

	rows, err := store.ListPlatformMetrics(ctx, testOwnerIDValue, listing.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, store.DeletePlatformMetric(ctx, testOwnerIDValue, listing.ID, stored.ID))
	require.ErrorIs(t, store.DeletePlatformMetric(ctx, testOwnerIDValue, listing.ID, stored.ID), storage.ErrNotFound)

	_, err = store.UpsertPlatformMetric(ctx, testOtherOwnerIDValue, other)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreUpsertFacebookMetricReplacesValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)
	facebookURL, err := model.NewFacebookURL(listing.ID, "https://fb.com/posts/3")
	require.NoError(t, err)
	facebookURL, err = store.CreateFacebookURL(ctx, testOwnerIDValue, facebookURL)
	require.NoError(t, err)

	for _, impressions := range []int64{10, 30} {
		metric, buildErr := model.NewFacebookMetric(model.FacebookMetricInput{FacebookURLID: facebookURL.ID, MetricDate: "2024-03-01", Impressions: int64Pointer(impressions)})
		require.NoError(t, buildErr)
		_, upsertErr := store.UpsertFacebookMetric(ctx, testOwnerIDValue, listing.ID, metric)
		require.NoError(t, upsertErr)
	}

	rows, err := store.ListFacebookURLMetrics(ctx, testOwnerIDValue, listing.ID, facebookURL.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(30), model.ValueOrZero(rows[0].Impressions))

	require.NoError(t, store.DeleteFacebookMetric(ctx, testOwnerIDValue, listing.ID, rows[0].ID))
	require.ErrorIs(t, store.DeleteFacebookMetric(ctx, testOwnerIDValue, listing.ID, rows[0].ID), storage.ErrNotFound)
}

func TestStoreFacebookPostLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)

	url := "Post about the open house"
	post, err := model.NewFacebookPost(model.FacebookPostInput{ListingID: listing.ID, URL: &url, Views: int64Pointer(40)})
	require.NoError(t, err)
	post, err = store.CreateFacebookPost(ctx, testOwnerIDValue, post)
	require.NoError(t, err)

	require.NoError(t, post.ApplyEdit(model.FacebookPostInput{Views: int64Pointer(15)}))
	saved, err := store.SaveFacebookPost(ctx, testOwnerIDValue, post)
	require.NoError(t, err)
	require.Equal(t, int64(15), saved.Views)
	require.Equal(t, url, saved.URL)

	counts, err := store.CountFacebookEntries(ctx, testOwnerIDValue)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[listing.ID])

	require.NoError(t, store.DeleteFacebookPost(ctx, testOwnerIDValue, listing.ID, post.ID))
	posts, err := store.ListFacebookPosts(ctx, testOwnerIDValue, listing.ID)
	require.NoError(t, err)
	require.Empty(t, posts)
}

func TestStoreDeleteFacebookURLRollsBackOnFailure(t *testing.T) {
	database := testutil.NewMigratedSQLiteDatabase(t)
	store := storage.NewStore(database)
	ctx := context.Background()
	listing := createTestListing(t, store, testOwnerIDValue, testListingNameValue)
	facebookURL, err := model.NewFacebookURL(listing.ID, "https://facebook.com/posts/1")
	require.NoError(t, err)
	facebookURL, err = store.CreateFacebookURL(ctx, testOwnerIDValue, facebookURL)
	require.NoError(t, err)

	analytics, err := model.NewAnalytics(model.AnalyticsInput{ListingID: listing.ID, FacebookURLID: facebookURL.ID, MetricDate: "2024-02-01", Views: 12})
	require.NoError(t, err)
	_, err = store.UpsertAnalytics(ctx, testOwnerIDValue, analytics)
	require.NoError(t, err)
	metric, err := model.NewFacebookMetric(model.FacebookMetricInput{FacebookURLID: facebookURL.ID, MetricDate: "2024-02-01", Impressions: int64Pointer(50)})
	require.NoError(t, err)
	_, err = store.UpsertFacebookMetric(ctx, testOwnerIDValue, listing.ID, metric)
	require.NoError(t, err)

	errDiskFull := errors.New("disk full")
	require.NoError(t, database.Callback().Delete().Before("gorm:delete").Register("test:fail_facebook_url_delete", func(transaction *gorm.DB) {
		if transaction.Statement.Table == "facebook_urls" {
			_ = transaction.AddError(errDiskFull)
		}
	}))

	require.ErrorIs(t, store.DeleteFacebookURL(ctx, testOwnerIDValue, listing.ID, facebookURL.ID), errDiskFull)

	rows, err := store.ListAnalytics(ctx, testOwnerIDValue, listing.ID, storage.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].FacebookURLID)
	require.Equal(t, facebookURL.ID, *rows[0].FacebookURLID)

	metrics, err := store.ListFacebookMetrics(ctx, testOwnerIDValue, listing.ID)
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	urls, err := store.ListFacebookURLs(ctx, testOwnerIDValue, listing.ID)
	require.NoError(t, err)
	require.Len(t, urls, 1)
}
