package harimport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/harimport"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/testutil"
)

const testOwnerID = "owner@example.com"

type stubListingLister struct {
	listings []model.Listing
	err      error
}

func (lister stubListingLister) ListListings(context.Context, string) ([]model.Listing, error) {
	return lister.listings, lister.err
}

func TestBuildMLSIndexUsesEmbeddedDigitRuns(t *testing.T) {
	index := harimport.BuildMLSIndex([]model.Listing{
		{ID: "with-mls", Name: "Main St Listing 1234567"},
		{ID: "short-digits", Name: "Unit 1234 Loft"},
		{ID: "no-digits", Name: "Lake House"},
	})

	listingID, found := index.Lookup("1234567")
	require.True(t, found)
	require.Equal(t, "with-mls", listingID)
	require.Len(t, index, 1)

	_, found = index.Lookup("123456")
	require.False(t, found)
}

func TestImporterReportsMatchesAndUnmatched(t *testing.T) {
	importer := harimport.NewImporter(stubListingLister{listings: []model.Listing{
		{ID: "listing-1", Name: "Main St Listing 1234567"},
	}}, nil)

	raw := "MLS#\n123 Main St\t1234567\t45\tA\t100\t50\t25\n8 Side St\t7777777\t2\tS\t1\t2\t3\nbad\tline"
	result, err := importer.Import(context.Background(), testOwnerID, raw)
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalRows)
	require.Equal(t, 1, result.Matched)
	require.Equal(t, 0, result.Updated)
	require.Equal(t, []harimport.UnmatchedEntry{{MLSNumber: "7777777", Address: "8 Side St"}}, result.Unmatched)
	require.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
}

func TestImporterFatalConditions(t *testing.T) {
	importer := harimport.NewImporter(stubListingLister{}, nil)

	_, err := importer.Import(context.Background(), testOwnerID, "  ")
	require.ErrorIs(t, err, harimport.ErrNoData)

	_, err = importer.Import(context.Background(), testOwnerID, "a\tb")
	require.ErrorIs(t, err, harimport.ErrNoRows)

	_, err = importer.Import(context.Background(), "", "1 A St\t1234567\t1\tA\t1\t1\t1")
	require.ErrorIs(t, err, storage.ErrMissingOwner)

	failing := harimport.NewImporter(stubListingLister{err: errors.New("store down")}, nil)
	_, err = failing.Import(context.Background(), testOwnerID, "1 A St\t1234567\t1\tA\t1\t1\t1")
	require.Error(t, err)
}

func TestImporterDoesNotPersistMatches(t *testing.T) {
	store := storage.NewStore(testutil.NewMigratedSQLiteDatabase(t))
	ctx := context.Background()
	listing, err := model.NewListing(model.ListingInput{OwnerID: testOwnerID, Name: "Main St Listing 1234567"})
	require.NoError(t, err)
	listing, err = store.CreateListing(ctx, testOwnerID, listing)
	require.NoError(t, err)

	result, err := harimport.NewImporter(store, nil).Import(ctx, testOwnerID, "123 Main St\t1234567\t45\tA\t100\t50\t25")
	require.NoError(t, err)
	require.Equal(t, 1, result.Matched)

	reloaded, err := store.GetListing(ctx, testOwnerID, listing.ID)
	require.NoError(t, err)
	_, present := reloaded.SnapshotHARViews()
	require.False(t, present)
}
