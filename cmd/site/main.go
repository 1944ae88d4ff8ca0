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

	httpadapter "github.com/sorasolar/site-api/internal/adapter/http"
	"github.com/sorasolar/site-api/internal/adapter/dataset"
	kafkaadapter "github.com/sorasolar/site-api/internal/adapter/kafka"
	"github.com/sorasolar/site-api/internal/adapter/mapbox"
	"github.com/sorasolar/site-api/internal/config"
	"github.com/sorasolar/site-api/internal/domain"
	"github.com/sorasolar/site-api/internal/intake"
	"github.com/sorasolar/site-api/internal/observability"
	"github.com/sorasolar/site-api/internal/pipeline"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	provider := dataset.NewProvider(cfg.RooftopsSource, cfg.PartnersSource, cfg.DatasetTimeout, logger)

	var opts []pipeline.Option
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		opts = append(opts, pipeline.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	partitioners := []domain.Partitioner{
		domain.NewGridPartitioner(cfg.MapCellSize, cfg.GridThresholds),
		domain.NewClusterPartitioner(cfg.Clusters, cfg.ClusterThresholds),
	}
	p := pipeline.New(provider, provider, partitioners, cfg.MapStrategy, logger, metrics, opts...)

	var (
		sink       intake.LeadSink
		leadWriter *kafkaadapter.LeadWriter
	)
	if cfg.KafkaEnabled {
		leadWriter = kafkaadapter.NewLeadWriter(cfg, logger)
		sink = leadWriter
		logger.Info("kafka lead sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaLeadsTopic)
	} else {
		sink = intake.NewLogSink(logger)
		logger.Info("kafka lead sink disabled, leads are logged only")
	}
	contacts := intake.NewService(sink, logger, metrics)

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:             cfg.HTTPAddr,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		ContactRateLimit: cfg.ContactRateLimit,
		ContactRateBurst: cfg.ContactRateBurst,
		TrustedProxies:   cfg.TrustedProxies,
	}, p, contacts, p, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Warm datasets for readiness. Failure keeps /readyz at 503 but the
	// server keeps answering with the data-unavailable response.
	if err := p.Warm(ctx); err != nil {
		logger.Error("dataset warm-up failed", "error", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if leadWriter != nil {
		if err := leadWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
