package metrics

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const (
	fetchNameAnalytics       = "analytics"
	fetchNameFacebookURLs    = "facebook_urls"
	fetchNameFacebookMetrics = "facebook_metrics"
	fetchNamePlatformMetrics = "platform_metrics"
	fetchNameFacebookPosts   = "facebook_posts"

	logEventSourceFetchFailed = "normalize_source_failed"
)

// SourceReader is the owner-scoped read surface the normalizer fans out over.
type SourceReader interface {
	ListAnalytics(ctx context.Context, ownerID string, listingID string, dateRange storage.DateRange) ([]model.Analytics, error)
	ListFacebookURLs(ctx context.Context, ownerID string, listingID string) ([]model.FacebookURL, error)
	ListFacebookMetrics(ctx context.Context, ownerID string, listingID string) ([]model.FacebookMetric, error)
	ListPlatformMetrics(ctx context.Context, ownerID string, listingID string) ([]model.PlatformMetric, error)
	ListFacebookPosts(ctx context.Context, ownerID string, listingID string) ([]model.FacebookPost, error)
}

// Normalizer fetches every metric source of a listing and reduces them to a Summary.
type Normalizer struct {
	reader SourceReader
	logger *zap.Logger
}

// NewNormalizer builds a Normalizer.
func NewNormalizer(reader SourceReader, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{reader: reader, logger: logger}
}

// Summarize fetches the sources of a non-deleted listing concurrently and reduces them.
// A failing fetch contributes nothing and is reported in Summary.Degraded.
func (normalizer *Normalizer) Summarize(ctx context.Context, ownerID string, listing model.Listing) Summary {
	sources, degraded := normalizer.Collect(ctx, ownerID, listing)
	summary := Reduce(sources)
	summary.Degraded = degraded
	return summary
}

// Collect fetches the raw sources of a listing without reducing them.
func (normalizer *Normalizer) Collect(ctx context.Context, ownerID string, listing model.Listing) ([]MetricSource, []string) {
	var (
		analytics       []model.Analytics
		facebookURLs    []model.FacebookURL
		facebookMetrics []model.FacebookMetric
		platformRows    []model.PlatformMetric
		posts           []model.FacebookPost
	)

	fetches := map[string]func() error{
		fetchNameAnalytics: func() (err error) {
			analytics, err = normalizer.reader.ListAnalytics(ctx, ownerID, listing.ID, storage.DateRange{})
			return err
		},
		fetchNameFacebookURLs: func() (err error) {
			facebookURLs, err = normalizer.reader.ListFacebookURLs(ctx, ownerID, listing.ID)
			return err
		},
		fetchNameFacebookMetrics: func() (err error) {
			facebookMetrics, err = normalizer.reader.ListFacebookMetrics(ctx, ownerID, listing.ID)
			return err
		},
		fetchNamePlatformMetrics: func() (err error) {
			platformRows, err = normalizer.reader.ListPlatformMetrics(ctx, ownerID, listing.ID)
			return err
		},
		fetchNameFacebookPosts: func() (err error) {
			posts, err = normalizer.reader.ListFacebookPosts(ctx, ownerID, listing.ID)
			return err
		},
	}

	var (
		waitGroup   sync.WaitGroup
		degradedMux sync.Mutex
		degraded    []string
	)
	for name, fetch := range fetches {
		waitGroup.Add(1)
		go func(name string, fetch func() error) {
			defer waitGroup.Done()
			if err := fetch(); err != nil {
				normalizer.logger.Warn(logEventSourceFetchFailed,
					zap.String("listing_id", listing.ID),
					zap.String("source", name),
					zap.Error(err))
				degradedMux.Lock()
				degraded = append(degraded, name)
				degradedMux.Unlock()
			}
		}(name, fetch)
	}
	waitGroup.Wait()

	sort.Strings(degraded)
	sources := []MetricSource{
		LegacySource{
			Listing:         listing,
			Analytics:       analytics,
			FacebookURLs:    facebookURLs,
			FacebookMetrics: facebookMetrics,
		},
		PlatformMetricsSource{Rows: platformRows},
		SimplifiedPostSource{Posts: posts},
	}
	return sources, degraded
}
