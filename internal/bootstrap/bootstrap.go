package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/core"
	"github.com/go-authgate/qrgate/internal/services"
	"github.com/go-authgate/qrgate/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Logger *zap.Logger

	// Core infrastructure
	DB              *store.Store
	Artifacts       core.ArtifactStore
	Notifier        core.Notifier
	MetricsRecorder core.Recorder

	// Services
	IssuerService *services.IssuerService
	AccessService *services.AccessService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application, blocking until shutdown
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	app := &Application{
		Config: cfg,
		Logger: log,
	}

	// Phase 1: Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, artifact storage, mail and metrics
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	app.DB, err = initializeDatabase(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}

	app.Artifacts, err = initializeArtifactStore(ctx, app.Config)
	if err != nil {
		_ = app.DB.Close()
		return err
	}

	app.Notifier = initializeNotifier(app.Config, app.Logger)
	app.MetricsRecorder = initializeMetrics(app.Config)

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() {
	app.IssuerService, app.AccessService = initializeServices(
		app.Config,
		app.DB,
		app.Artifacts,
		app.Notifier,
		app.MetricsRecorder,
		app.Logger,
	)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	app.HandlerSet = initializeHandlers(app.IssuerService, app.AccessService, app.Logger)

	app.Router = setupRouter(
		app.Config,
		app.DB,
		app.Artifacts,
		app.HandlerSet,
		app.MetricsRecorder,
		app.Logger,
	)

	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server, app.Logger)
	addServerShutdownJob(m, app.Server, app.Logger)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.Logger)
	addArtifactStoreShutdownJob(m, app.Artifacts, app.Logger)
	addDatabaseShutdownJob(m, app.DB, app.Logger)

	<-m.Done()
}
