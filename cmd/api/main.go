// Command api serves city water-quality summaries over HTTP and, when
// INGEST_SCHEDULE is set, re-ingests INGEST_FILE on that schedule.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquaaware/water-quality-service/internal/adapter/cache"
	httpadapter "github.com/aquaaware/water-quality-service/internal/adapter/http"
	kafkaadapter "github.com/aquaaware/water-quality-service/internal/adapter/kafka"
	"github.com/aquaaware/water-quality-service/internal/adapter/memory"
	"github.com/aquaaware/water-quality-service/internal/adapter/postgres"
	"github.com/aquaaware/water-quality-service/internal/config"
	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/observability"
	"github.com/aquaaware/water-quality-service/internal/pipeline"
	"github.com/aquaaware/water-quality-service/internal/scheduler"
	"github.com/aquaaware/water-quality-service/internal/stations"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const connectAttempts = 8

// summaryStore is satisfied by both the Postgres and the in-memory store.
type summaryStore interface {
	pipeline.Store
	httpadapter.SummaryReader
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	index, err := stations.Index(cfg.StationMapFile)
	if err != nil {
		logger.Error("failed to load station map", "error", err)
		os.Exit(1)
	}
	accumulate, err := domain.AccumulatorByName(cfg.ScoreAccumulation)
	if err != nil {
		logger.Error("invalid score accumulation", "error", err)
		os.Exit(1)
	}

	// Store: PostgreSQL when configured, otherwise in-process.
	var store summaryStore
	if cfg.DatabaseURL != "" {
		pg, err := postgres.OpenWithRetry(ctx, cfg.DatabaseURL, connectAttempts, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		warnStationDrift(ctx, pg, index, logger)
		store = pg
		logger.Info("using postgres store")
	} else {
		store = memory.NewStore()
		logger.Info("using in-memory store")
	}

	var opts []pipeline.Option

	// Read path, optionally behind a cache that every committed run purges.
	var reader httpadapter.SummaryReader = store
	if backend := newCache(cfg, logger); backend != nil {
		cached := cache.NewCachedReader(store, backend, logger, metrics)
		reader = cached
		opts = append(opts, pipeline.WithInvalidator(cached))
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("summary publishing enabled", "topic", cfg.KafkaSummaryTopic)
	}

	ingester := pipeline.New(domain.NewScorer(domain.DefaultRules(), accumulate), index, store, logger, metrics, opts...)

	var sched *scheduler.Scheduler
	if cfg.IngestSchedule != "" {
		sched = scheduler.New(logger)
		err := sched.Add("ingest", cfg.IngestSchedule, func(ctx context.Context) error {
			_, err := ingester.RunFile(ctx, cfg.IngestFile)
			return err
		})
		if err != nil {
			logger.Error("failed to schedule ingestion", "error", err)
			os.Exit(1)
		}
		sched.Start()
		sched.RunNow()
		logger.Info("scheduled ingestion enabled", "schedule", cfg.IngestSchedule, "file", cfg.IngestFile)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, reader, cfg.QueryTimeout, logger, metrics)

	// Start HTTP server.
	go func() {
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
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler shutdown error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// warnStationDrift reports when the configured station map differs from the
// one persisted by the last committed ingest. Served summaries follow the
// persisted map until the next run.
func warnStationDrift(ctx context.Context, pg *postgres.Store, index *domain.StationIndex, logger *slog.Logger) {
	persisted, err := pg.LoadStationMap(ctx)
	if err != nil {
		logger.Warn("failed to load persisted station map", "error", err)
		return
	}
	if len(persisted) == 0 {
		return
	}
	added, removed := stations.Diff(persisted, index.Pairs())
	if len(added) > 0 || len(removed) > 0 {
		logger.Warn("station map changed since last ingest",
			"added", added, "removed", removed)
	}
}

// newCache picks the cache backend: Redis when configured, otherwise an
// in-process LRU, or nil when caching is disabled.
func newCache(cfg *config.Config, logger *slog.Logger) cache.Cache {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info("redis cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return cache.NewRedis(client, cfg.CacheTTL)
	}
	if cfg.CacheSize > 0 {
		logger.Info("in-memory cache enabled", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
	}
	return nil
}

// newLogger installs the configured logger as the slog default so early
// package-level slog calls use the same handler.
func newLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "water-quality")
}
