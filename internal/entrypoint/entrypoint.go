package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	auditrepo "github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/database/books"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/logger"
	"github.com/mrlokans/bookshelf/internal/readonly"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(handler http.Handler, cfg *config.Config, log zerolog.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if onShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			onShutdown(ctx)
		}
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Dur("timeout", timeout).Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Background work stops before the server so no new jobs start mid-shutdown.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("server exiting")
	return nil
}

// csrfSecret decodes AUTH_SESSION_SECRET, or generates a fresh one that is
// valid until the process exits.
func csrfSecret(cfg config.Auth, log zerolog.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		if secret, err := hex.DecodeString(cfg.SessionSecret); err == nil {
			return secret, nil
		}
		// Not hex, use as raw bytes
		return []byte(cfg.SessionSecret), nil
	}
	secret, err := auth.NewSecret()
	if err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	log.Warn().Msg("generated session secret (set AUTH_SESSION_SECRET to persist)")
	return secret, nil
}

// Run wires every component from cfg and serves until a shutdown signal.
func Run(cfg *config.Config, version string) error {
	a, err := newApp(cfg, version)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.start(); err != nil {
		return err
	}
	return Serve(a.router, cfg, a.log, a.stop)
}

// app holds what Run wires together. Nothing in it runs until start.
type app struct {
	log     zerolog.Logger
	db      *database.Database
	audit   *audit.Service
	tasks   *tasks.Client
	cleanup *scheduler.AuditCleanupScheduler
	router  http.Handler

	cancelTasks context.CancelFunc
}

// newApp builds every component without starting background work. On
// error, whatever was opened is closed again.
func newApp(cfg *config.Config, version string) (a *app, err error) {
	cfg.Logger.Version = version
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.Logger.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info().Str("version", version).Msg("starting bookshelf")

	a = &app{log: log}
	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	a.db, err = database.NewDatabase(cfg.Database.Path, database.Options{LogLevel: cfg.Database.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	bookRepo := books.NewRepository(a.db.DB)
	a.audit = audit.NewService(auditrepo.NewRepository(a.db.DB), log)

	sqlDB, err := a.db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db for sessions: %w", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth.SessionLifetime, cfg.Auth.SecureCookies)
	if err != nil {
		return nil, fmt.Errorf("initialize session manager: %w", err)
	}

	var basicAuth *auth.BasicAuth
	var secret []byte
	switch cfg.Auth.Mode {
	case config.AuthModeBasic:
		if cfg.Auth.PasswordHash == "" {
			return nil, errors.New("AUTH_MODE=basic requires AUTH_PASSWORD_HASH (see the hash-password command)")
		}
		lockout := auth.NewLockout(auth.LockoutPolicy{
			MaxFailures: cfg.Auth.MaxFailures,
			Window:      cfg.Auth.FailureWindow,
			Duration:    cfg.Auth.LockoutDuration,
		})
		basicAuth = auth.NewBasicAuth(cfg.Auth.Username, cfg.Auth.PasswordHash, lockout)
		secret, err = csrfSecret(cfg.Auth, log)
		if err != nil {
			return nil, err
		}
		log.Info().Str("username", cfg.Auth.Username).Msg("authentication mode: basic")
	case config.AuthModeNone, "":
		if cfg.Auth.SessionSecret != "" {
			secret, err = csrfSecret(cfg.Auth, log)
			if err != nil {
				return nil, err
			}
		}
		log.Info().Msg("authentication mode: none (write routes are open)")
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.Auth.Mode)
	}

	var readOnly *readonly.Middleware
	if cfg.ReadOnly.Enabled {
		log.Warn().Msg("read-only mode enabled, write operations will be blocked")
		readOnly = readonly.NewMiddleware(true)
	}

	router, err := http_controllers.NewRouter(http_controllers.RouterConfig{
		Books:          bookRepo,
		Audit:          a.audit,
		History:        a.audit,
		AuditEvents:    a.audit,
		Database:       a.db,
		Logger:         log,
		BooksPrefix:    cfg.Books.Prefix,
		PageSize:       cfg.Books.PageSize,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		SessionManager: sessionManager,
		BasicAuth:      basicAuth,
		ReadOnly:       readOnly,
		Version:        version,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	a.router = router

	// Audit retention: enqueue on the task queue when it runs, otherwise
	// clean up inline from the scheduler.
	auditService := a.audit
	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	trigger := func(ctx context.Context) error {
		deleted, err := auditService.DeleteOldEvents(ctx, retention)
		if err == nil {
			log.Info().Int64("deleted", deleted).Msg("cleaned up audit events")
		}
		return err
	}

	if cfg.Tasks.Enabled {
		a.tasks, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("initialize task queue: %w", err)
		}
		a.tasks.Register(tasks.NewCleanupAuditEventsQueue(auditService, log))

		taskClient := a.tasks
		trigger = func(ctx context.Context) error {
			_, err := taskClient.Add(tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}).Ctx(ctx).Save()
			return err
		}
	}

	a.cleanup = scheduler.NewAuditCleanupScheduler(cfg.Audit.CleanupSchedule, trigger, log)
	return a, nil
}

// start launches the task queue and the cleanup schedule.
func (a *app) start() error {
	if err := a.cleanup.Start(context.Background()); err != nil {
		return fmt.Errorf("start audit cleanup scheduler: %w", err)
	}
	if a.tasks != nil {
		var ctx context.Context
		ctx, a.cancelTasks = context.WithCancel(context.Background())
		a.tasks.Start(ctx)
	}
	return nil
}

// stop halts background work; it is the ShutdownFunc passed to Serve.
func (a *app) stop(ctx context.Context) {
	if a.cleanup != nil {
		a.cleanup.Stop()
	}
	if a.tasks != nil && a.cancelTasks != nil {
		a.tasks.Stop(ctx)
		a.cancelTasks()
	}
}

// close drains pending audit writes and releases the databases.
func (a *app) close() {
	if a.audit != nil {
		a.audit.Wait()
	}
	if a.tasks != nil {
		if err := a.tasks.Close(); err != nil {
			a.log.Error().Err(err).Msg("error closing task client")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error().Err(err).Msg("error closing database")
		}
	}
}
