package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/temirov/GAuss/pkg/gauss"
	"github.com/temirov/GAuss/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/api"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/auth"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/harimport"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/objectstore"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/report"
	"github.com/MarkoPoloResearchLab/listingtraffic/internal/storage"
)

const (
	commandUseName               = "server"
	commandShortDescription      = "Run the listing traffic server"
	commandLongDescription       = "Launch the listing traffic reporting HTTP server"
	missingConfigurationMessage  = "missing required configuration"
	loggerCreationErrorMessage   = "logger"
	logEventListening            = "listening"
	logEventImageStorageDisabled = "listing_image_storage_disabled"
	logFieldAddress              = "addr"
	logFieldServeMode            = "serve_mode"

	flagNameApplicationAddress    = "app-addr"
	flagNameServeMode             = "serve-mode"
	flagNameDatabaseDriver        = "db-driver"
	flagNameDatabaseDataSource    = "db-dsn"
	flagNameSessionSecret         = "session-secret"
	flagNamePublicOrigin          = "public-origin"
	flagNamePublicBaseURL         = "public-base-url"
	flagNameGoogleClientID        = "google-client-id"
	flagNameGoogleClientSecret    = "google-client-secret"
	flagNameReportLogoPath        = "report-logo-path"
	flagNameReportEstimateClicks  = "report-estimate-clicks"
	flagNameChromePath            = "chrome-path"
	flagNamePDFTimeout            = "pdf-timeout"
	flagNameS3Bucket              = "s3-bucket"
	flagNameS3Region              = "s3-region"
	flagNameS3AccessKeyID         = "s3-access-key-id"
	flagNameS3SecretAccessKey     = "s3-secret-access-key"
	flagNameS3Endpoint            = "s3-endpoint"
	flagNameS3PublicBaseURL       = "s3-public-base-url"
	environmentKeyAppAddress      = "APP_ADDR"
	environmentKeyServeMode       = "SERVE_MODE"
	environmentKeyDatabaseDriver  = "DB_DRIVER"
	environmentKeyDatabaseDSN     = "DB_DSN"
	environmentKeySessionSecret   = "SESSION_SECRET"
	environmentKeyPublicOrigin    = "PUBLIC_ORIGIN"
	environmentKeyPublicBaseURL   = "PUBLIC_BASE_URL"
	environmentKeyGoogleClientID  = "GOOGLE_CLIENT_ID"
	environmentKeyGoogleSecret    = "GOOGLE_CLIENT_SECRET"
	environmentKeyReportLogoPath  = "REPORT_LOGO_PATH"
	environmentKeyEstimateClicks  = "REPORT_ESTIMATE_CLICKS"
	environmentKeyChromePath      = "CHROME_PATH"
	environmentKeyPDFTimeout      = "PDF_TIMEOUT"
	environmentKeyS3Bucket        = "S3_BUCKET"
	environmentKeyS3Region        = "S3_REGION"
	environmentKeyS3AccessKeyID   = "S3_ACCESS_KEY_ID"
	environmentKeyS3SecretKey     = "S3_SECRET_ACCESS_KEY"
	environmentKeyS3Endpoint      = "S3_ENDPOINT"
	environmentKeyS3PublicBaseURL = "S3_PUBLIC_BASE_URL"

	defaultApplicationAddress = ":8080"
	defaultDatabaseDriver     = storage.DriverNameSQLite
	defaultPublicBaseURL      = "http://localhost:8080"
	defaultReportLogoPath     = "public/logo.png"
	defaultEstimateClicks     = "true"
	defaultS3Region           = "us-east-1"

	loggerContextOpenDatabase     = "open_db"
	loggerContextAutoMigrate      = "migrate"
	loggerContextAuthHandlers     = "auth_handlers"
	loggerContextImageStorage     = "image_storage"
	loggerContextServer           = "server"
	readHeaderTimeoutSeconds      = 5
	minimumSessionSecretBytes     = 32
	unexpectedArgumentsMessage    = "unexpected command arguments"
	commandInitializationFailure  = "failed to configure command"
	flagNotDefinedMessage         = "flag %s not defined"
	environmentConfigurationError = "failed to apply environment configuration"
	sessionSecretTooShortMessage  = "session secret must be at least 32 bytes"
)

// configurationKey ties an environment variable to its command-line flag.
type configurationKey struct {
	environmentKey string
	flagName       string
	defaultValue   string
	usage          string
}

var configurationKeys = []configurationKey{
	{environmentKeyAppAddress, flagNameApplicationAddress, defaultApplicationAddress, "address for the HTTP server to listen on"},
	{environmentKeyServeMode, flagNameServeMode, string(ServeModeMonolith), "surfaces to serve: monolith, web or api"},
	{environmentKeyDatabaseDriver, flagNameDatabaseDriver, defaultDatabaseDriver, "database driver: sqlite or postgres"},
	{environmentKeyDatabaseDSN, flagNameDatabaseDataSource, "", "database connection string"},
	{environmentKeySessionSecret, flagNameSessionSecret, "", "secret used to sign session cookies (at least 32 bytes)"},
	{environmentKeyPublicOrigin, flagNamePublicOrigin, "", "browser origin allowed to call the API with credentials"},
	{environmentKeyPublicBaseURL, flagNamePublicBaseURL, defaultPublicBaseURL, "public base URL used for OAuth redirects"},
	{environmentKeyGoogleClientID, flagNameGoogleClientID, "", "Google OAuth client id"},
	{environmentKeyGoogleSecret, flagNameGoogleClientSecret, "", "Google OAuth client secret"},
	{environmentKeyReportLogoPath, flagNameReportLogoPath, defaultReportLogoPath, "logo image embedded in reports"},
	{environmentKeyEstimateClicks, flagNameReportEstimateClicks, defaultEstimateClicks, "show estimated per-platform clicks in reports"},
	{environmentKeyChromePath, flagNameChromePath, "", "Chrome or Chromium executable used for PDF rendering"},
	{environmentKeyPDFTimeout, flagNamePDFTimeout, report.DefaultPDFTimeout.String(), "maximum duration of one PDF render"},
	{environmentKeyS3Bucket, flagNameS3Bucket, "", "bucket for listing images; empty disables uploads"},
	{environmentKeyS3Region, flagNameS3Region, defaultS3Region, "region of the listing image bucket"},
	{environmentKeyS3AccessKeyID, flagNameS3AccessKeyID, "", "static access key id for the image bucket"},
	{environmentKeyS3SecretKey, flagNameS3SecretAccessKey, "", "static secret access key for the image bucket"},
	{environmentKeyS3Endpoint, flagNameS3Endpoint, "", "S3-compatible endpoint override"},
	{environmentKeyS3PublicBaseURL, flagNameS3PublicBaseURL, "", "public base URL for stored images"},
}

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress     string
	ServeMode              ServeMode
	DatabaseDriverName     string
	DatabaseDataSourceName string
	SessionSecret          string
	PublicOrigin           string
	PublicBaseURL          string
	GoogleClientID         string
	GoogleClientSecret     string
	ReportLogoPath         string
	EstimatePlatformClicks bool
	ChromePath             string
	PDFTimeout             time.Duration
	ImageStorage           objectstore.Config
}

// DatabaseOpener opens a database connection using the provided storage configuration.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.AutomaticEnv()
	commandFlags := command.Flags()

	for _, key := range configurationKeys {
		application.configurationLoader.SetDefault(key.environmentKey, key.defaultValue)
		commandFlags.String(key.flagName, key.defaultValue, key.usage)

		if bindErr := application.bindFlag(commandFlags, key.environmentKey, key.flagName); bindErr != nil {
			return bindErr
		}

		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, key.environmentKey, key.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	if markErr := command.MarkFlagRequired(flagNameDatabaseDataSource); markErr != nil {
		return markErr
	}

	if markErr := command.MarkFlagRequired(flagNameSessionSecret); markErr != nil {
		return markErr
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

// loadServerConfig reads and validates the bound configuration.
func (application *ServerApplication) loadServerConfig() (ServerConfig, error) {
	loader := application.configurationLoader
	serveMode, serveModeErr := ParseServeMode(loader.GetString(environmentKeyServeMode))
	if serveModeErr != nil {
		return ServerConfig{}, serveModeErr
	}

	pdfTimeout := loader.GetDuration(environmentKeyPDFTimeout)
	if pdfTimeout <= 0 {
		pdfTimeout = report.DefaultPDFTimeout
	}

	serverConfig := ServerConfig{
		ApplicationAddress:     loader.GetString(environmentKeyAppAddress),
		ServeMode:              serveMode,
		DatabaseDriverName:     strings.TrimSpace(loader.GetString(environmentKeyDatabaseDriver)),
		DatabaseDataSourceName: strings.TrimSpace(loader.GetString(environmentKeyDatabaseDSN)),
		SessionSecret:          strings.TrimSpace(loader.GetString(environmentKeySessionSecret)),
		PublicOrigin:           strings.TrimSpace(loader.GetString(environmentKeyPublicOrigin)),
		PublicBaseURL:          strings.TrimSpace(loader.GetString(environmentKeyPublicBaseURL)),
		GoogleClientID:         strings.TrimSpace(loader.GetString(environmentKeyGoogleClientID)),
		GoogleClientSecret:     strings.TrimSpace(loader.GetString(environmentKeyGoogleSecret)),
		ReportLogoPath:         strings.TrimSpace(loader.GetString(environmentKeyReportLogoPath)),
		EstimatePlatformClicks: loader.GetBool(environmentKeyEstimateClicks),
		ChromePath:             strings.TrimSpace(loader.GetString(environmentKeyChromePath)),
		PDFTimeout:             pdfTimeout,
		ImageStorage: objectstore.Config{
			Bucket:          strings.TrimSpace(loader.GetString(environmentKeyS3Bucket)),
			Region:          strings.TrimSpace(loader.GetString(environmentKeyS3Region)),
			AccessKeyID:     strings.TrimSpace(loader.GetString(environmentKeyS3AccessKeyID)),
			SecretAccessKey: strings.TrimSpace(loader.GetString(environmentKeyS3SecretKey)),
			Endpoint:        strings.TrimSpace(loader.GetString(environmentKeyS3Endpoint)),
			PublicBaseURL:   strings.TrimSpace(loader.GetString(environmentKeyS3PublicBaseURL)),
		},
	}

	if validationErr := ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return ServerConfig{}, validationErr
	}
	if len(serverConfig.SessionSecret) < minimumSessionSecretBytes {
		return ServerConfig{}, errors.New(sessionSecretTooShortMessage)
	}
	return serverConfig, nil
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig, configErr := application.loadServerConfig()
	if configErr != nil {
		return configErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := application.databaseOpener(storage.Config{
		DriverName:     serverConfig.DatabaseDriverName,
		DataSourceName: serverConfig.DatabaseDataSourceName,
	})
	if databaseErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.Error(databaseErr))
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Fatal(loggerContextAutoMigrate, zap.Error(migrateErr))
	}

	session.NewSession([]byte(serverConfig.SessionSecret))

	dependencies, dependenciesErr := buildServerDependencies(command.Context(), serverConfig, database, logger)
	if dependenciesErr != nil {
		logger.Fatal(loggerContextAuthHandlers, zap.Error(dependenciesErr))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(logger))
	registerRoutes(router, serverConfig, dependencies)

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress), zap.String(logFieldServeMode, string(serverConfig.ServeMode)))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

// serverDependencies holds the handlers the routes are registered against.
type serverDependencies struct {
	authManager     *api.AuthManager
	oauthHandler    http.Handler
	listingHandlers *api.ListingHandlers
	reportHandlers  *api.ReportHandlers
	importHandlers  *api.HARImportHandlers
}

func buildServerDependencies(ctx context.Context, serverConfig ServerConfig, database *gorm.DB, logger *zap.Logger) (serverDependencies, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store := storage.NewStore(database)

	var imageStore objectstore.ImageStore
	if serverConfig.ImageStorage.Enabled() {
		s3Store, s3Err := objectstore.NewS3ImageStore(ctx, serverConfig.ImageStorage, logger)
		if s3Err != nil {
			logger.Error(loggerContextImageStorage, zap.Error(s3Err))
		} else {
			imageStore = s3Store
		}
	} else {
		logger.Info(logEventImageStorageDisabled)
	}

	htmlRenderer := report.NewHTMLRenderer(
		report.LoadLogo(serverConfig.ReportLogoPath, logger),
		report.Options{EstimatePlatformClicks: serverConfig.EstimatePlatformClicks},
	)
	pdfRenderer := report.NewChromePDFRenderer(serverConfig.ChromePath, serverConfig.PDFTimeout, logger)

	dependencies := serverDependencies{
		authManager:     api.NewAuthManager(logger),
		listingHandlers: api.NewListingHandlers(store, imageStore, logger),
		reportHandlers:  api.NewReportHandlers(store, report.NewGenerator(htmlRenderer, pdfRenderer), logger),
		importHandlers:  api.NewHARImportHandlers(harimport.NewImporter(store, logger), logger),
	}

	if serverConfig.ServeMode.servesWeb() {
		oauthHandlers, oauthErr := auth.NewHandlers(auth.Config{
			GoogleClientID:     serverConfig.GoogleClientID,
			GoogleClientSecret: serverConfig.GoogleClientSecret,
			PublicBaseURL:      serverConfig.PublicBaseURL,
			LocalRedirectPath:  postLoginRedirectPath,
			Scopes:             gauss.ScopeStrings(gauss.DefaultScopes),
			Logger:             logger,
		})
		if oauthErr != nil {
			return serverDependencies{}, oauthErr
		}
		serveMux := http.NewServeMux()
		oauthHandlers.RegisterRoutes(serveMux)
		dependencies.oauthHandler = serveMux
	}

	return dependencies, nil
}

func ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.DatabaseDataSourceName == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDataSource)
	}

	if configuration.SessionSecret == "" {
		missingParameters = append(missingParameters, flagNameSessionSecret)
	}

	if configuration.ServeMode.servesWeb() {
		if configuration.GoogleClientID == "" {
			missingParameters = append(missingParameters, flagNameGoogleClientID)
		}
		if configuration.GoogleClientSecret == "" {
			missingParameters = append(missingParameters, flagNameGoogleClientSecret)
		}
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
