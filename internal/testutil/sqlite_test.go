package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/testutil"
)

func TestSQLiteTestDatabaseConfiguration(t *testing.T) {
	configuration := testutil.NewSQLiteTestDatabase(t).Configuration()
	require.Equal(t, storage.DriverNameSQLite, configuration.DriverName)

	for _, parameter := range []string{"mode=memory", "cache=shared", "_foreign_keys=on"} {
		require.Contains(t, configuration.DataSourceName, parameter)
	}
	require.NotEqual(t, configuration.DataSourceName, testutil.NewSQLiteTestDatabase(t).DataSourceName())
}

func TestMigratedDatabasesAreIsolated(t *testing.T) {
	firstDatabase := testutil.NewMigratedSQLiteDatabase(t)
	secondDatabase := testutil.NewMigratedSQLiteDatabase(t)

	for _, tableName := range []string{"listings", "facebook_urls", "facebook_posts", "analytics", "platform_metrics", "facebook_metrics"} {
		require.True(t, firstDatabase.Migrator().HasTable(tableName), tableName)
	}

	listing, listingErr := model.NewListing(model.ListingInput{OwnerID: "agent@example.com", Name: "Isolated listing"})
	require.NoError(t, listingErr)
	require.NoError(t, firstDatabase.Create(&listing).Error)

	var secondCount int64
	require.NoError(t, secondDatabase.Model(&model.Listing{}).Count(&secondCount).Error)
	require.Zero(t, secondCount)
}
