package storage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

const errorMessageMigrateDatabase = "storage: migrate database"

// schemaModels lists the tables owned by the store. Listings come first so child tables
// can reference them.
func schemaModels() []any {
	return []any{
		&model.Listing{},
		&model.FacebookURL{},
		&model.FacebookPost{},
		&model.Analytics{},
		&model.PlatformMetric{},
		&model.FacebookMetric{},
	}
}

// AutoMigrate creates or updates the listing schema and repairs owner IDs stored in mixed case.
func AutoMigrate(database *gorm.DB) error {
	if migrateErr := database.AutoMigrate(schemaModels()...); migrateErr != nil {
		return fmt.Errorf("%s: %w", errorMessageMigrateDatabase, migrateErr)
	}
	if normalizeErr := normalizeListingOwnerIDs(database); normalizeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageMigrateDatabase, normalizeErr)
	}
	return nil
}

// normalizeListingOwnerIDs lowercases owner identifiers written before owner IDs were canonicalized.
func normalizeListingOwnerIDs(database *gorm.DB) error {
	return database.Model(&model.Listing{}).
		Unscoped().
		Where("owner_id <> LOWER(TRIM(owner_id))").
		Update("owner_id", gorm.Expr("LOWER(TRIM(owner_id))")).Error
}
