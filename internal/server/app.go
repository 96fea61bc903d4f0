// Package server wires configuration, storage, services and the HTTP and
// gRPC health servers together and runs them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/config"
	"github.com/dmitrijs2005/tours/internal/server/mail"
	"github.com/dmitrijs2005/tours/internal/server/ratelimit"
	"github.com/dmitrijs2005/tours/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tours/internal/server/rest"
	"github.com/dmitrijs2005/tours/internal/server/services"
	"github.com/dmitrijs2005/tours/internal/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/tours/internal/server/grpc"
)

const rateLimitWindow = time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   repomanager.RepositoryManager
	redis   *redis.Client
	http    *rest.Server
	health  *gs.HealthServer
	closers []func(ctx context.Context) error
}

// NewApp opens the store, applies migrations and builds both servers.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Env, os.Stdout)

	store, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	app := &App{config: c, logger: logger, store: store}
	app.closers = append(app.closers, store.Close)

	mailer, err := newMailer(c, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	users := services.NewUserService(store, mailer, logger, c, nil)
	tours := services.NewTourService(store, newPresigner(c), logger)
	reviews := services.NewReviewService(store, logger)

	if c.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := rest.NewRouter(rest.Dependencies{
		Users:          users,
		Tours:          tours,
		Reviews:        reviews,
		Limiter:        app.newLimiter(),
		Store:          store,
		Logger:         logger,
		AllowedOrigins: c.AllowedOrigins,
		RequestTimeout: c.RequestTimeout,
		PublicBaseURL:  c.PublicBaseURL,
		TrustedProxies: c.TrustedProxies,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	app.http = rest.NewServer(c.HTTPAddr, router, c.RequestTimeout, c.ShutdownTimeout, logger)
	app.health = gs.NewHealthServer(c.HealthAddrGRPC, store, c.HealthCheckInterval, logger)

	return app, nil
}

var errSMTPRequired = errors.New("smtp host is required in production")

// newMailer falls back to logging messages only outside production, since
// reset mails carry live tokens.
func newMailer(c *config.Config, logger logging.Logger) (mail.Sender, error) {
	if c.SMTPHost != "" {
		return mail.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom), nil
	}
	if c.IsProduction() {
		return nil, errSMTPRequired
	}
	return mail.NewLogSender(logger), nil
}

// newPresigner returns nil when no bucket is configured, which turns image
// upload requests into dependency errors.
func newPresigner(c *config.Config) services.ImagePresigner {
	if c.S3Bucket == "" {
		return nil
	}
	return storage.NewS3Presigner(c)
}

func (app *App) newLimiter() ratelimit.Limiter {
	if app.config.RateLimitPerMinute <= 0 {
		return nil
	}
	if app.config.RedisAddr == "" {
		return ratelimit.NewLocalLimiter(app.config.RateLimitPerMinute, rateLimitWindow)
	}

	app.redis = redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	app.closers = append(app.closers, func(context.Context) error { return app.redis.Close() })
	return ratelimit.NewRedisLimiter(app.redis, app.config.RateLimitPerMinute, rateLimitWindow)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives, ctx is done or one of the
// servers fails, then releases the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "grpc_health", app.health.Run)
	}()

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			app.logger.Error(ctx, "close failed", "error", err)
		}
	}
}
