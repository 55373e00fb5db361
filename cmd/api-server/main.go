package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/observability/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/registry"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := logging.MustNew(cfg.Env, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("store_driver", cfg.StoreDriver),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		registryRepo    registry.Repository
		appointmentRepo appointment.Repository
		directory       appointment.DoctorDirectory
		pinger          api.Pinger
		rdb             *redis.Client
		locker          redisclient.Locker = redisclient.NoopLocker{}
	)

	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := registry.NewMemoryRepository()
		registryRepo, directory = mem, mem
		appointmentRepo = appointment.NewMemoryRepository()
		logger.Warn("using in-memory store, data is lost on restart")

	default:
		pgPool, err := connectPostgres(rootCtx, cfg, logger)
		if err != nil {
			logger.Fatal("postgres connection error", zap.Error(err))
		}
		defer pgPool.Close()

		pgRegistry := registry.NewPgRepository(pgPool)
		registryRepo, directory = pgRegistry, pgRegistry
		appointmentRepo = appointment.NewPgRepository(pgPool)
		pinger = pgPool

		if cfg.RedisAddr != "" {
			rdb, err = redisclient.NewRedisClient(rootCtx, redisclient.Options{
				Addr:     cfg.RedisAddr,
				Username: cfg.RedisUsername,
				Password: cfg.RedisPassword,
				PoolSize: cfg.RedisPoolSize,
			})
			if err != nil {
				logger.Fatal("redis connection error", zap.Error(err))
			}
			defer func() {
				if err := rdb.Close(); err != nil {
					logger.Warn("error closing redis", zap.Error(err))
				}
			}()
			locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
			logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
		} else {
			logger.Info("redis disabled, creates rely on the unique slot index only")
		}
	}

	m := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	appointments := appointment.NewService(appointmentRepo, directory, locker, m, logger.Named("appointment"))
	registrySvc := registry.NewService(registryRepo, logger.Named("registry"))

	handler := api.NewRouter(api.RouterConfig{
		Appointments: appointments,
		Registry:     registrySvc,
		Tokens:       auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Health:       api.NewHealthHandler(pinger, rdb, cfg.Env, version),
		Logger:       logger.Named("http"),
		Metrics:      m,
		Gatherer:     prometheus.DefaultGatherer,
		PageMaxLimit: cfg.PageMaxLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func connectPostgres(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolSettings{MaxConns: cfg.PostgresMaxConn})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to Postgres")

	if cfg.MigrateOnStart {
		migrator, err := db.NewMigrator(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		defer func() { _ = migrator.Close() }()

		if err := migrator.Up(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}

	return pool, nil
}
