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

	httpapi "github.com/scratchlog/scratchlog/internal/scratchlog/http"
	"github.com/scratchlog/scratchlog/internal/scratchlog/mail"
	"github.com/scratchlog/scratchlog/internal/scratchlog/service"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store"
	"github.com/scratchlog/scratchlog/internal/scratchlog/store/drivers/sqlite"
	"github.com/scratchlog/scratchlog/pkg/cryptox"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the scratchlog service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	mailer mail.Mailer

	tokenService     *service.TokenService
	accountService   *service.AccountService
	lifecycleService *service.LifecycleService
	scheduler        *service.LifecycleScheduler

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "scratchlog",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if app.cfg.SessionSecret == "" {
		if app.cfg.Env != "dev" {
			return nil, errors.New("SCRATCHLOG_SESSION_SECRET must be set outside dev")
		}
		// Sessions won't survive a restart, which is fine for dev.
		app.cfg.SessionSecret = cryptox.MustGenerateToken(cryptox.TokenSize256)
		app.logger.Warn("using an ephemeral session secret; set SCRATCHLOG_SESSION_SECRET")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.mailer = mail.NewSMTPMailer(
		app.cfg.SMTPHost,
		app.cfg.SMTPPort,
		app.cfg.SMTPUsername,
		app.cfg.SMTPPassword,
		app.cfg.MailFrom,
	)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.scheduler.Start()

	app.logger.Info("scratchlog starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down scratchlog...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.scheduler.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("scratchlog stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:   app.db,
		Mailer:  app.mailer,
		BaseURL: app.cfg.BaseURL,
		TTLs: service.TokenTTLs{
			Register:              app.cfg.RegisterTokenTTL,
			ForgotPassword:        app.cfg.ForgotPasswordTokenTTL,
			ChangeEmail:           app.cfg.ChangeEmailTokenTTL,
			Deactivated:           app.cfg.DeactivatedTokenTTL,
			InactivityDeactivated: app.cfg.InactivityDeactivatedTokenTTL,
		},
		MailMaxRetries: app.cfg.MailMaxRetries,
		MailTimeout:    app.cfg.MailTimeout,
	}

	app.accountService = &service.AccountService{
		Store:            app.db,
		Tokens:           app.tokenService,
		MaxLoginAttempts: app.cfg.MaxLoginAttempts,
		SessionSecret:    []byte(app.cfg.SessionSecret),
		SessionTTL:       app.cfg.SessionTTL,
	}

	app.lifecycleService = &service.LifecycleService{
		Store:  app.db,
		Tokens: app.tokenService,
		Windows: service.InactivityWindows{
			Participant: app.cfg.ParticipantInactiveAfter,
			Experiment:  app.cfg.ExperimentInactiveAfter,
			Course:      app.cfg.CourseInactiveAfter,
		},
	}

	app.scheduler = service.NewLifecycleScheduler(
		app.lifecycleService,
		app.logger,
		app.cfg.TokenSweepInterval,
		app.cfg.InactivitySweepInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.AccountService = app.accountService
	router.TokenService = app.tokenService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
