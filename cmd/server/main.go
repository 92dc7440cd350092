// Package main provides the API server entry point for the trace graph service.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trace-graph/internal/adapter"
	"github.com/trace-graph/internal/api"
	"github.com/trace-graph/internal/config"
	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/service"
	"github.com/trace-graph/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	// Redis is optional: without it every graph query goes straight to the
	// ledger, which is correct just slower.
	var cache *storage.CacheService
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, running without graph cache")
	} else {
		defer redis.Close()
		cache = storage.NewCacheService(redis, cfg.Cache.TTL)
	}

	logger.Info("Database connections established")

	// Repositories
	traceRepo := storage.NewTraceRepository(clickhouse)
	addressRepo := storage.NewAddressRepository(postgres)
	protocolRepo := storage.NewProtocolRepository(postgres)
	snapshotRepo := storage.NewSnapshotRepository(postgres)
	securityRepo := storage.NewSecurityRepository(postgres)

	// External collaborators
	scorer := adapter.NewScorerClient(cfg.Scorer.BaseURL, cfg.Scorer.Timeout)

	// Services
	metadataService := service.NewMetadataService(addressRepo, protocolRepo)
	graphService := service.NewGraphService(traceRepo, metadataService, cache)
	snapshotService := service.NewSnapshotService(snapshotRepo, traceRepo, cache)
	securityService := service.NewSecurityService(securityRepo, scorer, metadataService)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:  cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, graphService, metadataService, snapshotService, securityService)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}

	logger.Info("Server stopped")
}
