// Package app assembles the bridge service: configuration, directory
// sessions, storage, business services and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corpdir/adbridge/internal/bridge/directory"
	"github.com/corpdir/adbridge/internal/bridge/domain"
	bridgehttp "github.com/corpdir/adbridge/internal/bridge/http"
	"github.com/corpdir/adbridge/internal/bridge/service"
	"github.com/corpdir/adbridge/internal/bridge/store"
	"github.com/corpdir/adbridge/internal/bridge/store/drivers/sqlite"
	"github.com/corpdir/adbridge/pkg/jwtx"
	"github.com/corpdir/adbridge/pkg/slogx"
)

// Application holds every long-lived dependency of the bridge service.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	directory *directory.SessionManager
	catalog   *domain.Catalog
	signer    *jwtx.Signer

	authService     *service.AuthService
	identityService *service.IdentityService
	transferService *service.TransferService
	syncService     *service.SyncService
	auditService    *service.AuditService
	housekeeping    *service.HousekeepingService

	server *http.Server
	router *bridgehttp.Router
}

// New builds a fully wired Application from cfg.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "adbridge",
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initDirectory(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initCatalog(); err != nil {
		app.closeDependencies()
		return nil, err
	}

	// Tokens do not survive a restart; short access lifetimes and the
	// refresh flow make clients re-authenticate cleanly.
	signer, err := jwtx.NewEphemeralSigner()
	if err != nil {
		app.closeDependencies()
		return nil, fmt.Errorf("initialize signing key: %w", err)
	}
	app.signer = signer

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the service and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("bridge service starting", "port", app.cfg.Port)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains the HTTP server and releases every dependency.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down bridge service")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()
	app.closeDependencies()

	app.logger.Info("bridge service stopped")
	return nil
}

func (app *Application) closeDependencies() {
	if app.directory != nil {
		if err := app.directory.Close(); err != nil {
			app.logger.Error("error closing directory sessions", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
		}
	}
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initDirectory() error {
	mgr, err := directory.NewSessionManager(directory.Config{
		ServerURL:  app.cfg.DirectoryURL,
		BindDN:     app.cfg.DirectoryBindDN,
		BindSecret: app.cfg.DirectoryBindPass,
		BaseDN:     app.cfg.DirectoryBaseDN,
		SearchBase: app.cfg.DirectorySearch,
		Domain:     app.cfg.DirectoryDomain,
		StartTLS:   app.cfg.DirectoryStartTLS,
		Timeout:    app.cfg.DirectoryTimeout,
		PoolSize:   app.cfg.DirectoryPoolSize,
	})
	if err != nil {
		return fmt.Errorf("initialize directory sessions: %w", err)
	}
	app.directory = mgr
	return nil
}

func (app *Application) initCatalog() error {
	if app.cfg.CatalogFile == "" {
		app.catalog = domain.DefaultCatalog()
		return nil
	}

	catalog, err := domain.LoadCatalog(app.cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("load unit catalog: %w", err)
	}
	app.catalog = catalog
	app.logger.Info("unit catalog loaded", "path", app.cfg.CatalogFile, "units", len(catalog.Keys()))
	return nil
}

func (app *Application) initServices() {
	resolver := &directory.Resolver{Client: app.directory}

	app.authService = &service.AuthService{
		Directory:  app.directory,
		Resolver:   resolver,
		Store:      app.db,
		Signer:     app.signer,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}
	app.identityService = &service.IdentityService{
		Store:    app.db,
		Resolver: resolver,
		Client:   app.directory,
	}
	app.transferService = &service.TransferService{
		Directory:   app.directory,
		Resolver:    resolver,
		Store:       app.db,
		Catalog:     app.catalog,
		BaseDN:      app.cfg.DirectoryBaseDN,
		Concurrency: app.cfg.TransferConcurrency,
	}
	app.syncService = &service.SyncService{
		Directory:    app.directory,
		Store:        app.db,
		DefaultScope: app.defaultSyncScope(),
	}
	app.auditService = &service.AuditService{Store: app.db}

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) defaultSyncScope() string {
	if app.cfg.DirectorySearch != "" {
		return app.cfg.DirectorySearch
	}
	return app.cfg.DirectoryBaseDN
}

func (app *Application) initHTTP() {
	verifier := jwtx.NewVerifier(app.signer, app.cfg.Issuer, nil)

	router := bridgehttp.NewRouter(
		app.signer,
		verifier,
		app.db,
		app.directory,
		app.catalog,
		app.logger,
	)
	router.AuthService = app.authService
	router.IdentityService = app.identityService
	router.TransferService = app.transferService
	router.SyncService = app.syncService
	router.AuditService = app.auditService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
