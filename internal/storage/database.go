package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	// DriverNameSQLite selects the pure-Go SQLite dialect used for local and test deployments.
	DriverNameSQLite = "sqlite"
	// DriverNamePostgres selects PostgreSQL.
	DriverNamePostgres = "postgres"

	errorMessageMissingDatabaseDriverName = "storage: missing database driver name"
	errorMessageUnsupportedDatabaseDriver = "storage: unsupported database driver"
	errorMessageMissingDataSourceName     = "storage: missing database data source name"
	errorMessageOpenDatabase              = "storage: open database"
)

var (
	// ErrMissingDatabaseDriverName is returned when no driver is configured.
	ErrMissingDatabaseDriverName = errors.New(errorMessageMissingDatabaseDriverName)
	// ErrUnsupportedDatabaseDriver is returned for drivers other than sqlite and postgres.
	ErrUnsupportedDatabaseDriver = errors.New(errorMessageUnsupportedDatabaseDriver)
	// ErrMissingDataSourceName is returned when the DSN is blank.
	ErrMissingDataSourceName = errors.New(errorMessageMissingDataSourceName)
)

// Config names the listing database to connect to.
type Config struct {
	DriverName     string
	DataSourceName string
}

func (configuration Config) normalized() Config {
	return Config{
		DriverName:     strings.ToLower(strings.TrimSpace(configuration.DriverName)),
		DataSourceName: strings.TrimSpace(configuration.DataSourceName),
	}
}

type dialectorFactory func(dataSourceName string) gorm.Dialector

var dialectorFactories = map[string]dialectorFactory{
	DriverNameSQLite:   sqlite.Open,
	DriverNamePostgres: postgres.Open,
}

// OpenDatabase connects to the configured database. Timestamps written by gorm are stored in UTC
// so metric dates compare the same way on every driver.
func OpenDatabase(configuration Config) (*gorm.DB, error) {
	normalized := configuration.normalized()
	if normalized.DriverName == "" {
		return nil, ErrMissingDatabaseDriverName
	}
	newDialector, supported := dialectorFactories[normalized.DriverName]
	if !supported {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabaseDriver, normalized.DriverName)
	}
	if normalized.DataSourceName == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingDataSourceName, normalized.DriverName)
	}

	database, openErr := gorm.Open(newDialector(normalized.DataSourceName), &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if openErr != nil {
		return nil, fmt.Errorf("%s (%s): %w", errorMessageOpenDatabase, normalized.DriverName, openErr)
	}
	return database, nil
}

// NewID returns a random UUID used as a primary key for listings and their child rows.
func NewID() string {
	return uuid.NewString()
}
