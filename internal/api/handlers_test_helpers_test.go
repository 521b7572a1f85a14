package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/harimport"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/objectstore"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/report"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/testutil"
)

const (
	testOwnerEmail     = "Agent@Example.com"
	testOtherEmail     = "other@example.com"
	testPNGBytes       = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	testHARListingURL  = "https://www.har.com/homedetail/123"
	testFacebookPostID = "https://facebook.com/posts/1"
)

var testNow = time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

type stubImageStore struct {
	putCalls   int
	deleted    []string
	putErr     error
	nextSuffix int
}

func (imageStore *stubImageStore) PutListingImage(_ context.Context, ownerID string, listingID string, contents []byte) (objectstore.StoredImage, error) {
	if imageStore.putErr != nil {
		return objectstore.StoredImage{}, imageStore.putErr
	}
	contentType, extension, detectErr := objectstore.DetectImageType(contents)
	if detectErr != nil {
		return objectstore.StoredImage{}, detectErr
	}
	imageStore.putCalls++
	imageStore.nextSuffix++
	key := objectstore.ListingImageKey(ownerID, listingID, time.UnixMilli(int64(imageStore.nextSuffix)), extension)
	return objectstore.StoredImage{Key: key, URL: "https://cdn.example.com/" + key, ContentType: contentType, Size: int64(len(contents))}, nil
}

func (imageStore *stubImageStore) DeleteImage(_ context.Context, key string) error {
	imageStore.deleted = append(imageStore.deleted, key)
	return nil
}

type stubPDFRenderer struct {
	documents [][]byte
	err       error
}

func (renderer *stubPDFRenderer) RenderPDF(_ context.Context, document []byte) ([]byte, error) {
	if renderer.err != nil {
		return nil, renderer.err
	}
	renderer.documents = append(renderer.documents, document)
	return []byte("%PDF-1.7 test"), nil
}

type testHarness struct {
	store      *storage.Store
	imageStore *stubImageStore
	pdf        *stubPDFRenderer
}

func newTestHarness(testingT *testing.T) *testHarness {
	testingT.Helper()
	gin.SetMode(gin.TestMode)
	return &testHarness{
		store:      storage.NewStore(testutil.NewMigratedSQLiteDatabase(testingT)),
		imageStore: &stubImageStore{},
		pdf:        &stubPDFRenderer{},
	}
}

// router builds the API surface for a caller; an empty email leaves the request anonymous.
func (harness *testHarness) router(email string, imageStore objectstore.ImageStore) *gin.Engine {
	listingHandlers := NewListingHandlers(harness.store, imageStore, zap.NewNop())
	listingHandlers.now = func() time.Time { return testNow }
	generator := report.NewGenerator(report.NewHTMLRenderer("", report.Options{EstimatePlatformClicks: true}), harness.pdf)
	reportHandlers := NewReportHandlers(harness.store, generator, nil)
	reportHandlers.now = func() time.Time { return testNow }
	importHandlers := NewHARImportHandlers(harimport.NewImporter(harness.store, nil), nil)

	router := gin.New()
	router.Use(func(context *gin.Context) {
		if email != "" {
			_ = SetCurrentUser(context, &CurrentUser{Email: email})
		}
		context.Next()
	})

	apiGroup := router.Group("/api")
	apiGroup.GET("/me", listingHandlers.CurrentUser)
	apiGroup.GET("/dashboard", listingHandlers.Dashboard)
	apiGroup.GET("/listings", listingHandlers.ListListings)
	apiGroup.POST("/listings", listingHandlers.CreateListing)
	apiGroup.GET("/listings/:id", listingHandlers.GetListing)
	apiGroup.PATCH("/listings/:id", listingHandlers.UpdateListing)
	apiGroup.DELETE("/listings/:id", listingHandlers.DeleteListing)
	apiGroup.POST("/listings/:id/image", listingHandlers.UploadListingImage)
	apiGroup.GET("/listings/:id/summary", listingHandlers.ListingSummary)
	apiGroup.GET("/listings/:id/trend", listingHandlers.ListingTrend)
	apiGroup.GET("/listings/:id/analytics.csv", listingHandlers.ExportAnalyticsCSV)
	apiGroup.GET("/listings/:id/facebook-urls", listingHandlers.ListFacebookURLs)
	apiGroup.POST("/listings/:id/facebook-urls", listingHandlers.CreateFacebookURL)
	apiGroup.DELETE("/listings/:id/facebook-urls/:url_id", listingHandlers.DeleteFacebookURL)
	apiGroup.GET("/listings/:id/facebook-urls/:url_id/metrics", listingHandlers.ListFacebookURLMetrics)
	apiGroup.POST("/listings/:id/facebook-urls/:url_id/metrics", listingHandlers.UpsertFacebookMetric)
	apiGroup.DELETE("/listings/:id/facebook-metrics/:metric_id", listingHandlers.DeleteFacebookMetric)
	apiGroup.GET("/listings/:id/facebook-posts", listingHandlers.ListFacebookPosts)
	apiGroup.POST("/listings/:id/facebook-posts", listingHandlers.CreateFacebookPost)
	apiGroup.PATCH("/listings/:id/facebook-posts/:post_id", listingHandlers.UpdateFacebookPost)
	apiGroup.DELETE("/listings/:id/facebook-posts/:post_id", listingHandlers.DeleteFacebookPost)
	apiGroup.GET("/listings/:id/analytics", listingHandlers.ListAnalytics)
	apiGroup.POST("/listings/:id/analytics", listingHandlers.UpsertAnalytics)
	apiGroup.DELETE("/listings/:id/analytics/:analytics_id", listingHandlers.DeleteAnalytics)
	apiGroup.GET("/listings/:id/platform-metrics", listingHandlers.ListPlatformMetrics)
	apiGroup.POST("/listings/:id/platform-metrics", listingHandlers.UpsertPlatformMetric)
	apiGroup.DELETE("/listings/:id/platform-metrics/:metric_id", listingHandlers.DeletePlatformMetric)
	apiGroup.POST("/har-import", importHandlers.Import)
	apiGroup.GET("/reports/:id/pdf", reportHandlers.DownloadPDF)
	router.GET("/reports/:id/print", reportHandlers.RenderPrintPage)
	return router
}

func performJSON(testingT *testing.T, router http.Handler, method string, path string, payload any) *httptest.ResponseRecorder {
	testingT.Helper()
	var body bytes.Buffer
	if payload != nil {
		switch typed := payload.(type) {
		case string:
			body.WriteString(typed)
		default:
			require.NoError(testingT, json.NewEncoder(&body).Encode(payload))
		}
	}
	request := httptest.NewRequest(method, path, &body)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func performImageUpload(testingT *testing.T, router http.Handler, path string, contents []byte) *httptest.ResponseRecorder {
	testingT.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, partErr := writer.CreateFormFile(formFieldImage, "photo.png")
	require.NoError(testingT, partErr)
	_, writeErr := part.Write(contents)
	require.NoError(testingT, writeErr)
	require.NoError(testingT, writer.Close())

	request := httptest.NewRequest(http.MethodPost, path, &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeJSON[T any](testingT *testing.T, recorder *httptest.ResponseRecorder) T {
	testingT.Helper()
	var decoded T
	require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &decoded), recorder.Body.String())
	return decoded
}

func createListing(testingT *testing.T, router http.Handler, payload map[string]any) listingResponse {
	testingT.Helper()
	recorder := performJSON(testingT, router, http.MethodPost, "/api/listings", payload)
	require.Equal(testingT, http.StatusCreated, recorder.Code, recorder.Body.String())
	return decodeJSON[listingResponse](testingT, recorder)
}

func requireErrorCode(testingT *testing.T, recorder *httptest.ResponseRecorder, status int, code string) {
	testingT.Helper()
	require.Equal(testingT, status, recorder.Code, recorder.Body.String())
	payload := decodeJSON[map[string]any](testingT, recorder)
	require.Equal(testingT, code, payload[jsonKeyError])
}
