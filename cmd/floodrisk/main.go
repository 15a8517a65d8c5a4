package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/geojson"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/rainfall"
	redisadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/redis"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	"github.com/couchcryptid/flood-risk-service/internal/spatial"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	fallback, err := spatial.FromEPSG(cfg.SourceEPSG)
	if err != nil {
		logger.Error("invalid SOURCE_EPSG", "epsg", cfg.SourceEPSG, "error", err)
		os.Exit(1)
	}

	layers := geojson.NewLoader(geojson.Files{
		Wards:      cfg.WardsFile,
		Drains:     cfg.DrainsFile,
		FloodProne: cfg.FloodProneFile,
		Vulnerable: cfg.VulnerableFile,
		LowLying:   cfg.LowLyingFile,
	}, geojson.Options{
		WardNameProperty: cfg.WardNameProperty,
		WardCodeProperty: cfg.WardCodeProperty,
		FallbackCRS:      fallback,
	}, logger)
	series := rainfall.NewReader(cfg.RainfallFile, logger)

	opts := pipeline.OptionsFromConfig(cfg)

	// Shared artifact cache (feature-flagged via REDIS_ADDR).
	store := redisadapter.NewStore(cfg)
	if store != nil {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, artifacts will be recomputed locally until it recovers", "addr", cfg.RedisAddr, "error", err)
		} else {
			logger.Info("redis artifact cache enabled", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		}
		cancel()
		opts.Store = store
	}

	// Snapshot publishing (feature-flagged via KAFKA_ENABLED).
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts.Publisher = publisher
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	svc := pipeline.New(layers, series, opts, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The service refuses to start on unusable inputs.
	if _, err := svc.Refresh(ctx); err != nil {
		logger.Error("initial snapshot build failed", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	// Pending publishes are bounded by the publish timeout.
	svc.WaitForPublish()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
