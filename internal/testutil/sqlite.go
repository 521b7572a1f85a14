// Package testutil provides throwaway listing databases for package tests.
package testutil

import (
	"fmt"
	"log"
	"strings"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const sqliteMemoryDataSourceTemplate = "file:listingtraffic-%s?mode=memory&cache=shared&_foreign_keys=on"

// SQLiteTestDatabase names a private in-memory SQLite database. Each value gets its own
// shared-cache name so parallel tests never see each other's listings.
type SQLiteTestDatabase struct {
	dataSourceName string
}

// NewSQLiteTestDatabase allocates a unique in-memory database name.
func NewSQLiteTestDatabase(testingT *testing.T) SQLiteTestDatabase {
	testingT.Helper()
	return SQLiteTestDatabase{dataSourceName: fmt.Sprintf(sqliteMemoryDataSourceTemplate, storage.NewID())}
}

// Configuration returns a storage.Config for OpenDatabase.
func (database SQLiteTestDatabase) Configuration() storage.Config {
	return storage.Config{DriverName: storage.DriverNameSQLite, DataSourceName: database.dataSourceName}
}

// DataSourceName returns the SQLite DSN.
func (database SQLiteTestDatabase) DataSourceName() string {
	return database.dataSourceName
}

// testLogSink forwards gorm log lines to the running test.
type testLogSink struct {
	testingT *testing.T
}

func (sink testLogSink) Write(data []byte) (int, error) {
	if line := strings.TrimSpace(string(data)); line != "" {
		sink.testingT.Log(line)
	}
	return len(data), nil
}

// ConfigureDatabaseLogger routes gorm errors into the test log and drops record-not-found noise
// produced by ownership checks.
func ConfigureDatabaseLogger(testingT *testing.T, database *gorm.DB) *gorm.DB {
	testingT.Helper()
	if database == nil {
		testingT.Fatalf("configure database logger: nil database")
	}
	return database.Session(&gorm.Session{
		Logger: logger.New(log.New(testLogSink{testingT: testingT}, "", 0), logger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  logger.Error,
		}),
	})
}

// NewMigratedSQLiteDatabase opens a fresh database with the listing schema applied and closes it
// when the test ends.
func NewMigratedSQLiteDatabase(testingT *testing.T) *gorm.DB {
	testingT.Helper()
	database, openErr := storage.OpenDatabase(NewSQLiteTestDatabase(testingT).Configuration())
	if openErr != nil {
		testingT.Fatalf("open sqlite database: %v", openErr)
	}
	sqlDatabase, sqlErr := database.DB()
	if sqlErr != nil {
		testingT.Fatalf("sqlite handle: %v", sqlErr)
	}
	testingT.Cleanup(func() {
		_ = sqlDatabase.Close()
	})
	database = ConfigureDatabaseLogger(testingT, database)
	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		testingT.Fatalf("migrate sqlite database: %v", migrateErr)
	}
	return database
}
