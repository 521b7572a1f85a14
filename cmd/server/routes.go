package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/temirov/GAuss/pkg/constants"
)

const (
	apiRoutePrefix        = "/api"
	postLoginRedirectPath = "/api/dashboard"

	apiRouteMe                  = "/me"
	apiRouteDashboard           = "/dashboard"
	apiRouteListings            = "/listings"
	apiRouteListing             = "/listings/:id"
	apiRouteListingImage        = "/listings/:id/image"
	apiRouteListingSummary      = "/listings/:id/summary"
	apiRouteListingTrend        = "/listings/:id/trend"
	apiRouteListingCSV          = "/listings/:id/analytics.csv"
	apiRouteFacebookURLs        = "/listings/:id/facebook-urls"
	apiRouteFacebookURL         = "/listings/:id/facebook-urls/:url_id"
	apiRouteFacebookURLMetrics  = "/listings/:id/facebook-urls/:url_id/metrics"
	apiRouteFacebookMetric      = "/listings/:id/facebook-metrics/:metric_id"
	apiRouteFacebookPosts       = "/listings/:id/facebook-posts"
	apiRouteFacebookPost        = "/listings/:id/facebook-posts/:post_id"
	apiRouteAnalytics           = "/listings/:id/analytics"
	apiRouteAnalyticsEntry      = "/listings/:id/analytics/:analytics_id"
	apiRoutePlatformMetrics     = "/listings/:id/platform-metrics"
	apiRoutePlatformMetricEntry = "/listings/:id/platform-metrics/:metric_id"
	apiRouteHARImport           = "/har-import"
	apiRouteReportPDF           = "/reports/:id/pdf"
	webRouteReportPrint         = "/reports/:id/print"

	corsHeaderContentType        = "Content-Type"
	corsHeaderContentDisposition = "Content-Disposition"
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	corsAllowedHeaders = []string{corsHeaderContentType}
	corsExposedHeaders = []string{corsHeaderContentType, corsHeaderContentDisposition}
	oauthRoutePaths    = []string{constants.LoginPath, constants.GoogleAuthPath, constants.CallbackPath, constants.LogoutPath}
)

func registerRoutes(router *gin.Engine, serverConfig ServerConfig, dependencies serverDependencies) {
	if serverConfig.ServeMode.servesWeb() {
		registerFrontendRoutes(router, dependencies)
	}
	if serverConfig.ServeMode.servesAPI() {
		registerBackendRoutes(router, dependencies, serverConfig.PublicOrigin)
	}
}

func registerFrontendRoutes(router *gin.Engine, dependencies serverDependencies) {
	if dependencies.oauthHandler != nil {
		oauthHandler := gin.WrapH(dependencies.oauthHandler)
		for _, routePath := range oauthRoutePaths {
			router.GET(routePath, oauthHandler)
		}
		router.GET("/", func(context *gin.Context) {
			context.Redirect(http.StatusFound, constants.LoginPath)
		})
	}
	router.GET(webRouteReportPrint, dependencies.authManager.RequireAuthenticatedWeb(), dependencies.reportHandlers.RenderPrintPage)
}

// newAuthenticatedCORS allows credentialed calls from the configured browser origin.
// An empty origin means same-origin only and no CORS middleware is installed.
func newAuthenticatedCORS(publicOrigin string) gin.HandlerFunc {
	if publicOrigin == "" {
		return nil
	}
	return cors.New(cors.Config{
		AllowOrigins:     []string{publicOrigin},
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func registerBackendRoutes(router *gin.Engine, dependencies serverDependencies, publicOrigin string) {
	apiGroup := router.Group(apiRoutePrefix)
	if authenticatedCORS := newAuthenticatedCORS(publicOrigin); authenticatedCORS != nil {
		apiGroup.Use(authenticatedCORS)
		apiGroup.OPTIONS("/*path", func(context *gin.Context) {
			context.Status(http.StatusNoContent)
		})
	}
	apiGroup.Use(dependencies.authManager.RequireAuthenticatedJSON())

	listingHandlers := dependencies.listingHandlers
	apiGroup.GET(apiRouteMe, listingHandlers.CurrentUser)
	apiGroup.GET(apiRouteDashboard, listingHandlers.Dashboard)
	apiGroup.GET(apiRouteListings, listingHandlers.ListListings)
	apiGroup.POST(apiRouteListings, listingHandlers.CreateListing)
	apiGroup.GET(apiRouteListing, listingHandlers.GetListing)
	apiGroup.PATCH(apiRouteListing, listingHandlers.UpdateListing)
	apiGroup.DELETE(apiRouteListing, listingHandlers.DeleteListing)
	apiGroup.POST(apiRouteListingImage, listingHandlers.UploadListingImage)
	apiGroup.GET(apiRouteListingSummary, listingHandlers.ListingSummary)
	apiGroup.GET(apiRouteListingTrend, listingHandlers.ListingTrend)
	apiGroup.GET(apiRouteListingCSV, listingHandlers.ExportAnalyticsCSV)

	apiGroup.GET(apiRouteFacebookURLs, listingHandlers.ListFacebookURLs)
	apiGroup.POST(apiRouteFacebookURLs, listingHandlers.CreateFacebookURL)
	apiGroup.DELETE(apiRouteFacebookURL, listingHandlers.DeleteFacebookURL)
	apiGroup.GET(apiRouteFacebookURLMetrics, listingHandlers.ListFacebookURLMetrics)
	apiGroup.POST(apiRouteFacebookURLMetrics, listingHandlers.UpsertFacebookMetric)
	apiGroup.DELETE(apiRouteFacebookMetric, listingHandlers.DeleteFacebookMetric)
	apiGroup.GET(apiRouteFacebookPosts, listingHandlers.ListFacebookPosts)
	apiGroup.POST(apiRouteFacebookPosts, listingHandlers.CreateFacebookPost)
	apiGroup.PATCH(apiRouteFacebookPost, listingHandlers.UpdateFacebookPost)
	apiGroup.DELETE(apiRouteFacebookPost, listingHandlers.DeleteFacebookPost)
	apiGroup.GET(apiRouteAnalytics, listingHandlers.ListAnalytics)
	apiGroup.POST(apiRouteAnalytics, listingHandlers.UpsertAnalytics)
	apiGroup.DELETE(apiRouteAnalyticsEntry, listingHandlers.DeleteAnalytics)
	apiGroup.GET(apiRoutePlatformMetrics, listingHandlers.ListPlatformMetrics)
	apiGroup.POST(apiRoutePlatformMetrics, listingHandlers.UpsertPlatformMetric)
	apiGroup.DELETE(apiRoutePlatformMetricEntry, listingHandlers.DeletePlatformMetric)

	apiGroup.POST(apiRouteHARImport, dependencies.importHandlers.Import)
	apiGroup.GET(apiRouteReportPDF, dependencies.reportHandlers.DownloadPDF)
}
