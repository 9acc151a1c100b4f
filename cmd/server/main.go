package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"quick_chat/internal/config"
	"quick_chat/internal/handler"
	"quick_chat/internal/metrics"
	"quick_chat/internal/middleware"
	"quick_chat/internal/presence"
	"quick_chat/internal/repository"
	"quick_chat/internal/service"
	"quick_chat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var appLogger logger.Logger
	if cfg.IsProduction() {
		appLogger = logger.New(cfg.Log.Level)
	} else {
		appLogger = logger.NewDevelopment(cfg.Log.Level)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established")
	} else {
		appLogger.Info("Redis disabled, using in-process rate limiting")
	}

	var repos *repository.Repositories
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		repos = repository.NewMemoryRepositories(rdb, clk, cfg, appLogger)
	default:
		dbPool, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", "error", err)
		}
		defer dbPool.Close()
		appLogger.Info("Database connection established")

		if err := repository.Migrate(ctx, dbPool, appLogger); err != nil {
			appLogger.Fatal("Failed to apply migrations", "error", err)
		}
		repos = repository.NewRepositories(dbPool, rdb, clk, cfg, appLogger)
	}

	if repos.Presence != nil {
		if err := repos.Presence.Reset(ctx); err != nil {
			appLogger.Warn("Failed to reset presence directory", "error", err)
		}
	}

	appMetrics := metrics.New()
	registry := presence.NewRegistry(cfg.Presence.Shards, cfg.Presence.NotifyBuffer)
	services := service.NewServices(repos, registry, appMetrics, clk, cfg, appLogger)

	notifier := presence.NewNotifier(registry, cfg.Presence.ObserverTimeout, appLogger,
		services.PresenceObservers(repos, registry, appMetrics)...)
	go notifier.Run(ctx)
	go services.Broadcaster.Run(ctx)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)
	handlers := handler.NewHandlers(services, registry, appMetrics, cfg, appLogger)
	router := handler.NewRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	registry.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
