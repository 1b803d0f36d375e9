package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/shiftlane/onboard/internal/onboard/http"
	"github.com/shiftlane/onboard/internal/onboard/notify"
	"github.com/shiftlane/onboard/internal/onboard/service"
	"github.com/shiftlane/onboard/internal/onboard/store"
	"github.com/shiftlane/onboard/internal/onboard/store/drivers/sqlite"
	"github.com/shiftlane/onboard/pkg/codegen"
	"github.com/shiftlane/onboard/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the onboarding service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	invitationService   *service.InvitationService
	joinRequestService  *service.JoinRequestService
	onboardingService   *service.OnboardingService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if cfg.AuthSecret == "" {
		return nil, errors.New("AUTH_SECRET is required")
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "onboard-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("onboard service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down onboard service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("onboard service stopped")
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
	var mailer service.InviteMailer
	if app.cfg.SMTPHost != "" {
		mailer = notify.NewMailer(notify.SMTPConfig{
			Host:        app.cfg.SMTPHost,
			Port:        app.cfg.SMTPPort,
			Username:    app.cfg.SMTPUsername,
			Password:    app.cfg.SMTPPassword,
			From:        app.cfg.SMTPFrom,
			JoinBaseURL: app.cfg.JoinBaseURL,
		})
		app.logger.Info("invitation email delivery enabled", "smtp_host", app.cfg.SMTPHost)
	}

	app.invitationService = &service.InvitationService{
		Store:  app.db,
		Codes:  codegen.New(),
		Mailer: mailer,
	}
	app.joinRequestService = &service.JoinRequestService{Store: app.db}
	app.onboardingService = &service.OnboardingService{
		Invitations:  app.invitationService,
		JoinRequests: app.joinRequestService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.invitationService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		[]byte(app.cfg.AuthSecret),
		app.cfg.AuthIssuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.InvitationService = app.invitationService
	router.JoinRequestService = app.joinRequestService
	router.OnboardingService = app.onboardingService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
