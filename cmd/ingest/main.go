// Command ingest runs one batch over a GEMS measurement export: parse, score
// every mapped city, and replace the stored snapshot.
//
// Usage:
//
//	go run ./cmd/ingest -file data/gems_india.csv
//	go run ./cmd/ingest -file data/gems_india.csv -stations configs/stations.yaml -dry-run
//
// Storage, cache, and publishing settings come from the same environment as
// cmd/api. With -dry-run nothing is written and the summaries are printed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/aquaaware/water-quality-service/internal/adapter/cache"
	kafkaadapter "github.com/aquaaware/water-quality-service/internal/adapter/kafka"
	"github.com/aquaaware/water-quality-service/internal/adapter/memory"
	"github.com/aquaaware/water-quality-service/internal/adapter/postgres"
	"github.com/aquaaware/water-quality-service/internal/config"
	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/observability"
	"github.com/aquaaware/water-quality-service/internal/pipeline"
	"github.com/aquaaware/water-quality-service/internal/stations"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const connectAttempts = 3

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}
	if err := run(); err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	file := flag.String("file", cfg.IngestFile, "GEMS measurement CSV (semicolon-delimited)")
	stationFile := flag.String("stations", cfg.StationMapFile, "YAML station map (default: built-in map)")
	accumulation := flag.String("accumulation", cfg.ScoreAccumulation, "score accumulation: absolute or clamped")
	dryRun := flag.Bool("dry-run", false, "score and print summaries without writing anything")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return errors.New("missing required flag: -file")
	}
	if !*dryRun && cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required unless -dry-run is set")
	}

	logger := newLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	index, err := stations.Index(*stationFile)
	if err != nil {
		return err
	}
	accumulate, err := domain.AccumulatorByName(*accumulation)
	if err != nil {
		return err
	}
	scorer := domain.NewScorer(domain.DefaultRules(), accumulate)

	if *dryRun {
		ingester := pipeline.New(scorer, index, memory.NewStore(), logger, metrics)
		report, err := ingester.RunFile(ctx, *file)
		if err != nil {
			return err
		}
		printReport(os.Stdout, report)
		return nil
	}

	store, err := postgres.OpenWithRetry(ctx, cfg.DatabaseURL, connectAttempts, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var opts []pipeline.Option
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer client.Close()
		opts = append(opts, pipeline.WithInvalidator(cache.NewRedis(client, cfg.CacheTTL)))
	}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer writer.Close()
		opts = append(opts, pipeline.WithPublisher(writer))
	}

	ingester := pipeline.New(scorer, index, store, logger, metrics, opts...)
	report, err := ingester.RunFile(ctx, *file)
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	return nil
}

func printReport(w io.Writer, report pipeline.Report) {
	fmt.Fprintf(w, "run %s: %d rows, %d parsed, %d malformed, %d dropped (unmapped station)\n\n",
		report.RunID, report.Rows, report.Parsed, len(report.ParseErrors), report.Dropped)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY\tSCORE\tQUALITY\tLAST UPDATED\tPOLLUTANTS")
	for _, s := range report.Summaries {
		last := "-"
		if !s.LastUpdated.IsZero() {
			last = s.LastUpdated.Format(domain.DateLayout)
		}
		fmt.Fprintf(tw, "%s\t%.0f\t%s\t%s\t%s\n", s.City, s.QualityScore, s.Quality, last, strings.Join(s.MainPollutants, ", "))
	}
	tw.Flush() //nolint:errcheck // stdout
}

// newLogger installs the configured logger as the slog default so early
// package-level slog calls use the same handler.
func newLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "water-quality")
}
