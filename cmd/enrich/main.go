// Package main provides the address enrichment worker. It scans the trace
// ledger for addresses missing metadata and fills them in from Etherscan.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trace-graph/internal/adapter"
	"github.com/trace-graph/internal/config"
	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/service"
	"github.com/trace-graph/internal/storage"
)

func main() {
	var (
		once     = flag.Bool("once", false, "Run a single enrichment pass and exit")
		interval = flag.Duration("interval", time.Hour, "Interval between enrichment passes")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	if cfg.Etherscan.APIKey == "" {
		logger.Fatal("ETHERSCAN_API_KEY is required")
	}

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

	traceRepo := storage.NewTraceRepository(clickhouse)
	addressRepo := storage.NewAddressRepository(postgres)
	etherscan := adapter.NewEtherscanClient(cfg.Etherscan.APIKey)

	enrichment := service.NewEnrichmentService(traceRepo, addressRepo, etherscan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if *once {
		if _, err := enrichment.Run(ctx); err != nil {
			logger.WithError(err).Fatal("Enrichment run failed")
		}
		return
	}

	enrichment.RunPeriodically(ctx, *interval)
}
