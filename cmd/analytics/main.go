// Command analytics runs the hazard analytics service: it consumes raw
// provider payloads from Kafka, unifies and scores them, republishes the
// merged records, and serves the query API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/hazard-analytics-service/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/hazard-analytics-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-analytics-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-analytics-service/internal/config"
	"github.com/couchcryptid/hazard-analytics-service/internal/observability"
	"github.com/couchcryptid/hazard-analytics-service/internal/pipeline"
	"github.com/couchcryptid/hazard-analytics-service/internal/quality"
	"github.com/couchcryptid/hazard-analytics-service/internal/store"
)

func main() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	dataset := store.New(cfg.StoreMaxRecords)
	monitor := quality.NewMonitor(logger)

	p := pipeline.New(reader, writer, dataset, monitor, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Dataset:         dataset,
		Monitor:         monitor,
		Ready:           p,
		Cache:           cache.New(cfg.CacheTTL, cfg.CacheMaxEntries),
		Metrics:         metrics,
		TrendWindowDays: cfg.TrendWindowDays,
		Logger:          logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingestion pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
