package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/guardkit/guardkit/internal/auth"
	"github.com/guardkit/guardkit/internal/config"
	"github.com/guardkit/guardkit/internal/event"
	handler "github.com/guardkit/guardkit/internal/handler/http"
	"github.com/guardkit/guardkit/internal/repository/postgres"
	"github.com/guardkit/guardkit/internal/service"
	"github.com/guardkit/guardkit/migrations"
	"github.com/guardkit/guardkit/pkg/database"
	"github.com/guardkit/guardkit/pkg/health"
	pkgkafka "github.com/guardkit/guardkit/pkg/kafka"
	pkgmiddleware "github.com/guardkit/guardkit/pkg/middleware"
	"github.com/guardkit/guardkit/pkg/ratelimit"
	"github.com/guardkit/guardkit/pkg/tracing"
)

// startupTimeout bounds how long NewApp may spend dialing external systems.
const startupTimeout = 10 * time.Second

// App owns the process-lifetime resources of the auth service: the HTTP
// server plus the postgres, redis, kafka and tracing handles it drains on
// shutdown.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp builds the dependency graph from configuration: tracing, postgres
// with migrations applied, kafka, optional redis, the auth service, and the
// HTTP server around it. Resources opened before a failure are closed on the
// way out.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    "auth",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := openPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	redisClient, err := openRedis(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	authService, err := buildAuthService(cfg, pool, producer, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		pool.Close()
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	router := handler.NewRouter(
		authService,
		registerHealthChecks(pool, producer, redisClient),
		loginLimiter(cfg, redisClient, logger),
		logger,
		pkgmiddleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins, Environment: cfg.Environment},
		cfg.PprofAllowedCIDRs,
	)

	return &App{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redisClient: redisClient,
		producer:    producer,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           router,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracerShutdown: tracerShutdown,
	}, nil
}

// openPostgres dials the pool, registers its metrics collector, applies
// pending migrations and arms slow query logging.
func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("dial postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost), slog.Int("port", cfg.PostgresPort), slog.String("database", cfg.PostgresDB))
	database.RegisterPoolMetrics(pool, "auth")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations applied")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}
	return pool, nil
}

// openRedis returns nil without error when redis is disabled; the rate
// limiter then falls back to per-instance in-memory counting.
func openRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	if !cfg.RedisEnabled {
		return nil, nil
	}

	client, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr()))
	return client, nil
}

// buildAuthService assembles the domain layer: token codec, password hasher,
// user repository and event producer feeding the service.
func buildAuthService(cfg *config.Config, pool *pgxpool.Pool, producer *pkgkafka.Producer, logger *slog.Logger) (*service.AuthService, error) {
	codec := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	hasher := auth.NewPasswordHasher(auth.HashParams{
		MemoryKiB:   cfg.HashMemoryKiB,
		Iterations:  cfg.HashIterations,
		Parallelism: cfg.HashParallelism,
	})
	repo := postgres.NewUserRepository(pool)
	events := event.NewProducer(producer, logger)
	return service.NewAuthService(repo, codec, hasher, events, logger)
}

// loginLimiter picks the limiter backend: redis when available so the limit
// holds across instances, otherwise in-memory. Nil means rate limiting is
// disabled and the router mounts the login route bare.
func loginLimiter(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.RateLimitEnabled {
		return nil
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, "ratelimit:login", cfg.RateLimitLoginAttempts, cfg.RateLimitLoginWindow)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitLoginAttempts, cfg.RateLimitLoginWindow)
	}
	return pkgmiddleware.RateLimit(limiter, logger)
}

// registerHealthChecks wires the dependency probes. Postgres is critical;
// kafka and redis outages only degrade readiness.
func registerHealthChecks(pool *pgxpool.Pool, producer *pkgkafka.Producer, redisClient *redis.Client) *health.Handler {
	h := health.NewHandler()
	h.RegisterCritical("postgres", func(ctx context.Context) error { return pool.Ping(ctx) })
	h.RegisterNonCritical("kafka", func(ctx context.Context) error { return producer.Ping(ctx) })
	if redisClient != nil {
		h.RegisterNonCritical("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	return h
}

// Run starts the HTTP server and blocks until ctx is canceled or the server
// fails, then drains everything via Shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}
	return a.Shutdown()
}

// Shutdown drains in dependency order: the HTTP server first so in-flight
// requests finish, the tracer next so their spans flush, then the messaging
// and storage clients.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application")

	var errs []error
	fail := func(what string, err error) {
		a.logger.Error(what+" shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelHTTP()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		fail("http server", err)
	}

	if a.tracerShutdown != nil {
		traceCtx, cancelTrace := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancelTrace()
		if err := a.tracerShutdown(traceCtx); err != nil {
			fail("tracer", err)
		}
	}

	if err := a.producer.Close(); err != nil {
		fail("kafka producer", err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			fail("redis", err)
		}
	}
	a.pool.Close()

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
