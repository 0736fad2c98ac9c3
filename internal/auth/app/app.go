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

	httpapi "github.com/nodewatchers/nodewatch/internal/auth/http"
	"github.com/nodewatchers/nodewatch/internal/auth/service"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/internal/auth/store/drivers/sqlite"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
	"github.com/nodewatchers/nodewatch/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	keys     *service.Keychain
	registry *service.SceneRegistry

	// Services
	sceneService        *service.SceneTokenService
	sliderService       *service.SliderService
	boxService          *service.LoginBoxService
	mfaService          *service.MFAService
	accountService      *service.AccountTokenService
	visitService        *service.VisitTokenService
	loginService        *service.LoginService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set key file locations for password hashing and MFA secret encryption
	cryptox.SetPepperPath(app.cfg.PepperFile)
	cryptox.SetMFAKeyPath(app.cfg.MFAKeyFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := app.initKeys(ctx); err != nil {
		return nil, err
	}

	app.initServices()

	if err := app.bootstrapAdmin(ctx); err != nil {
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.registry = service.NewSceneRegistry()
	app.sliderService = service.NewSliderService()

	app.sceneService = &service.SceneTokenService{
		Store:    app.db,
		Keys:     app.keys,
		Registry: app.registry,
	}
	app.boxService = &service.LoginBoxService{
		Store:    app.db,
		Registry: app.registry,
	}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}
	app.accountService = &service.AccountTokenService{
		Store: app.db,
		Keys:  app.keys,
	}
	app.visitService = &service.VisitTokenService{
		Accounts: app.accountService,
		Keys:     app.keys,
	}
	app.userService = &service.UserService{Store: app.db}

	app.loginService = &service.LoginService{
		Store:    app.db,
		Scenes:   app.sceneService,
		Slider:   app.sliderService,
		Box:      app.boxService,
		MFA:      app.mfaService,
		Accounts: app.accountService,
		Registry: app.registry,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.registry,
		app.sliderService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// bootstrapAdmin seeds the first account when configured and the user table
// is still empty.
func (app *Application) bootstrapAdmin(ctx context.Context) error {
	if app.cfg.AdminUsername == "" || app.cfg.AdminPassword == "" {
		return nil
	}

	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if !empty {
		return nil
	}

	user, err := app.userService.CreateUser(ctx, app.cfg.AdminUsername, app.cfg.AdminPassword, "", true)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	app.logger.Info("bootstrap admin user created", "username", user.Username)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.LoginService = app.loginService
	router.Accounts = app.accountService
	router.Visits = app.visitService
	router.MFAService = app.mfaService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
