// Package server initializes and runs the contacts API server.
// It connects PostgreSQL and Redis, applies migrations, wires the services,
// serves REST and gRPC health, and shuts everything down on a signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/contactsapi/internal/logging"
	"github.com/dmitrijs2005/contactsapi/internal/server/cache"
	"github.com/dmitrijs2005/contactsapi/internal/server/config"
	"github.com/dmitrijs2005/contactsapi/internal/server/mailer"
	"github.com/dmitrijs2005/contactsapi/internal/server/ratelimit"
	"github.com/dmitrijs2005/contactsapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactsapi/internal/server/rest"
	"github.com/dmitrijs2005/contactsapi/internal/server/services"
	"github.com/dmitrijs2005/contactsapi/internal/server/shared/db"
	"github.com/dmitrijs2005/contactsapi/internal/server/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/contactsapi/internal/server/grpc"
)

// startupTimeout bounds how long NewApp waits for PostgreSQL and Redis.
const startupTimeout = time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	api     *rest.API
	health  *services.HealthService
	limiter ratelimit.Limiter
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	conn, err := db.OpenPostgres(c.DatabaseDSN, db.DefaultPoolOptions)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := waitReady(ctx, logger, "postgres", conn.PingContext); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db connect error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	if err := waitReady(ctx, logger, "redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		conn.Close()
		rdb.Close()
		return nil, fmt.Errorf("redis connect error: %w", err)
	}

	app, err := wire(ctx, c, logger, conn, rdb, rm)
	if err != nil {
		conn.Close()
		rdb.Close()
		return nil, err
	}
	return app, nil
}

// wire builds the services and the HTTP API on top of open connections.
func wire(ctx context.Context, c *config.Config, logger logging.Logger, conn *sql.DB, rdb *redis.Client, rm repomanager.RepositoryManager) (*App, error) {

	m, err := mailer.NewSMTPMailer(mailer.Options{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		SSL:      c.SMTPSSL,
		From:     c.SMTPFrom,
		FromName: c.SMTPFromName,
		BaseURL:  c.PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	avatars, err := storage.NewS3AvatarStore(ctx, storage.S3Options{
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		PublicURL:    c.S3PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	var limiter ratelimit.Limiter
	switch c.RateLimitBackend {
	case config.RateLimitMemory:
		limiter = ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow)
	case config.RateLimitRedis, "":
		limiter = ratelimit.NewRedisLimiter(rdb, "ratelimit:me", c.RateLimitRequests, c.RateLimitWindow)
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", c.RateLimitBackend)
	}

	userCache := cache.NewUserCache(rdb, c.UserCacheTTL)
	health := services.NewHealthService(conn)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(conn, "contacts"),
	)

	api := rest.NewAPI(rest.Options{
		Auth:        services.NewAuthService(conn, rm, userCache, m, logger, c),
		Contacts:    services.NewContactService(conn, rm),
		Users:       services.NewUserService(conn, rm, userCache, avatars, logger),
		Health:      health,
		MeLimiter:   limiter,
		Metrics:     rest.NewMetrics(reg, reg),
		CORSOrigins: c.CORSOrigins,
		Logger:      logger,
	})

	return &App{
		config:  c,
		logger:  logger,
		db:      conn,
		redis:   rdb,
		api:     api,
		health:  health,
		limiter: limiter,
	}, nil
}

// waitReady pings a dependency with exponential backoff until it answers or
// startupTimeout passes.
func waitReady(ctx context.Context, logger logging.Logger, name string, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = startupTimeout

	operation := func() error {
		err := ping(ctx)
		if err != nil {
			logger.Warn(ctx, "dependency not ready", "name", name, "error", err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewHTTPServer(app.config.HTTPAddr, app.api.Router(), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.health)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if ml, ok := app.limiter.(*ratelimit.MemoryLimiter); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ml.RunCleanup(ctx, app.config.RateLimitWindow, 2*app.config.RateLimitWindow)
		}()
	}

	wg.Wait()

	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if err := app.redis.Close(); err != nil {
		app.logger.Error(ctx, "redis close error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
