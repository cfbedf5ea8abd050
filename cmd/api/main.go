package main

// @title Forest Density Service API
// @version 1.0.0
// @description Ingests forest canopy density cells into PostGIS and computes canopy statistics
// @description (area-weighted mean cover, area above a threshold, area per canopy class) for a query polygon.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/forest-density-service/docs"
	"github.com/forest-density-service/internal/config"
	httpDelivery "github.com/forest-density-service/internal/delivery/http"
	"github.com/forest-density-service/internal/delivery/http/handler"
	"github.com/forest-density-service/internal/domain/repository"
	"github.com/forest-density-service/internal/pkg/logger"
	"github.com/forest-density-service/internal/repository/cache"
	"github.com/forest-density-service/internal/repository/postgres"
	redisRepo "github.com/forest-density-service/internal/repository/redis"
	"github.com/forest-density-service/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Forest Density Service")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
	)

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	log.Info("PostgreSQL connected")

	// 4. Connect to Redis; the API keeps serving stats without it
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Warn("Redis unavailable, stats cache and queued loads disabled", zap.Error(err))
		redisClient = nil
	}

	// 5. Health check
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		log.Fatal("PostgreSQL health check failed", zap.Error(err))
	}

	// 6. Initialize repositories
	forestRepo := postgres.NewForestDensityRepository(db, log)

	var (
		cacheRepo  repository.CacheRepository
		streamRepo repository.StreamRepository
	)
	if redisClient != nil {
		cacheRepo = cache.NewCacheRepository(redisClient)
		streamRepo = redisRepo.NewStreamRepository(redisClient.Client(), log, cfg.Worker.StreamReadTimeout)
	}

	log.Info("Repositories initialized")

	// 7. Initialize use cases
	statsUC := usecase.NewForestDensityUseCase(forestRepo, cacheRepo, log, cfg.Cache.StatsCacheTTL)
	loadUC := usecase.NewLoadUseCase(forestRepo, cacheRepo, log, cfg.LoadDefaults())

	// 8. Initialize HTTP handlers
	forestDensityHandler := handler.NewForestDensityHandler(statsUC, log)

	var loadHandler *handler.LoadHandler
	switch {
	case streamRepo == nil:
	case cfg.Ingest.Root == "":
		log.Info("INGEST_ROOT not set, queued loads disabled")
	default:
		jobUC := usecase.NewLoadJobUseCase(loadUC, streamRepo, cfg.Ingest.Root, log)
		loadHandler = handler.NewLoadHandler(jobUC, log)
		log.Info("Queued loads enabled", zap.String("ingest_root", cfg.Ingest.Root))
	}

	checks := map[string]handler.HealthChecker{"postgres": db}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	healthHandler := handler.NewHealthHandler(checks, log)

	// 9. Initialize HTTP server
	server := httpDelivery.NewServer(cfg, log, forestDensityHandler, loadHandler, healthHandler)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	if err := db.Close(); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}

	log.Info("Server stopped successfully")
}
