package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/observability"
	"github.com/google/uuid"
)

// maxLoggedParseErrors bounds per-row warnings for a single run.
const maxLoggedParseErrors = 20

// ErrPersist wraps store failures; nothing from the run was committed.
var ErrPersist = errors.New("persist snapshot")

// Snapshot is the complete output of one ingestion run, written atomically.
type Snapshot struct {
	RunID        string
	Stations     []domain.CityStation
	Measurements []domain.Measurement
	Summaries    []domain.CitySummary
}

// Store replaces the station map, measurements, and summaries in one atomic step.
type Store interface {
	ReplaceAll(ctx context.Context, snap Snapshot) error
}

// Publisher announces committed summaries to downstream consumers.
type Publisher interface {
	PublishSummaries(ctx context.Context, runID string, summaries []domain.CitySummary) error
}

// Invalidator drops derived read-path state after a commit.
type Invalidator interface {
	Purge(ctx context.Context) error
}

// Report describes the outcome of one run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	Rows        int
	Parsed      int
	ParseErrors []*domain.ParseError
	Dropped     int // measurements whose station has no city
	ByTag       map[string]int
	Summaries   []domain.CitySummary
}

// Ingester runs the parse → resolve → score → aggregate → commit batch.
type Ingester struct {
	scorer       *domain.Scorer
	index        *domain.StationIndex
	store        Store
	publisher    Publisher
	invalidators []Invalidator
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// Option configures optional Ingester collaborators.
type Option func(*Ingester)

// WithPublisher publishes summaries after every committed run.
func WithPublisher(p Publisher) Option {
	return func(i *Ingester) { i.publisher = p }
}

// WithInvalidator purges a cache after every committed run.
func WithInvalidator(inv Invalidator) Option {
	return func(i *Ingester) { i.invalidators = append(i.invalidators, inv) }
}

// New creates an Ingester for a fixed station index and rule set.
func New(scorer *domain.Scorer, index *domain.StationIndex, store Store, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Ingester {
	i := &Ingester{
		scorer:  scorer,
		index:   index,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// RunFile opens path and runs a batch over its contents.
func (i *Ingester) RunFile(ctx context.Context, path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		i.metrics.IngestRuns.WithLabelValues("parse_failed").Inc()
		return Report{}, fmt.Errorf("open ingest file: %w", err)
	}
	defer f.Close()
	return i.Run(ctx, f)
}

// Run reads the complete measurement set from r, recomputes every city summary,
// and commits the result. Either everything is committed or nothing is.
func (i *Ingester) Run(ctx context.Context, r io.Reader) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString(), StartedAt: start.UTC()}
	logger := i.logger.With("run_id", report.RunID)
	logger.Info("ingestion started")

	parser, err := domain.NewParser(r)
	if err != nil {
		i.metrics.IngestRuns.WithLabelValues("parse_failed").Inc()
		return report, err
	}
	measurements := parser.Collect()
	report.Rows = parser.Rows()
	report.Parsed = parser.Parsed()
	report.ParseErrors = parser.Errors()
	i.recordParse(logger, report)
	if err := parser.Err(); err != nil {
		i.metrics.IngestRuns.WithLabelValues("parse_failed").Inc()
		return report, err
	}

	res := i.scorer.ScoreCities(slices.Values(measurements), i.index)
	report.Dropped = res.Dropped
	report.ByTag = res.ByTag
	report.Summaries = domain.SummarizeAll(res)
	if res.Dropped > 0 {
		logger.Warn("measurements from unmapped stations dropped", "count", res.Dropped)
	}

	if err := ctx.Err(); err != nil {
		i.metrics.IngestRuns.WithLabelValues("persist_failed").Inc()
		return report, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	snap := Snapshot{
		RunID:        report.RunID,
		Stations:     i.index.Pairs(),
		Measurements: measurements,
		Summaries:    report.Summaries,
	}
	if err := i.store.ReplaceAll(ctx, snap); err != nil {
		i.metrics.IngestRuns.WithLabelValues("persist_failed").Inc()
		logger.Error("ingestion aborted, nothing committed", "error", err)
		return report, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	i.afterCommit(ctx, logger, report)

	report.Duration = time.Since(start)
	i.metrics.IngestRuns.WithLabelValues("success").Inc()
	i.metrics.IngestDuration.Observe(report.Duration.Seconds())
	i.metrics.CitiesSummarized.Set(float64(len(report.Summaries)))
	i.metrics.DroppedMeasurements.Add(float64(res.Dropped))
	for tag, n := range res.ByTag {
		i.metrics.RuleFirings.WithLabelValues(tag).Add(float64(n))
	}
	i.metrics.LastIngestSuccess.SetToCurrentTime()

	logger.Info("ingestion committed",
		"rows", report.Rows,
		"parsed", report.Parsed,
		"parse_errors", len(report.ParseErrors),
		"dropped", report.Dropped,
		"cities", len(report.Summaries),
		"duration", report.Duration,
	)
	return report, nil
}

func (i *Ingester) recordParse(logger *slog.Logger, report Report) {
	i.metrics.RowsRead.Add(float64(report.Rows))
	i.metrics.RowsParsed.Add(float64(report.Parsed))
	i.metrics.ParseErrors.Add(float64(len(report.ParseErrors)))

	for n, perr := range report.ParseErrors {
		if n == maxLoggedParseErrors {
			logger.Warn("further parse errors suppressed", "remaining", len(report.ParseErrors)-n)
			break
		}
		logger.Warn("malformed row skipped", "line", perr.Line, "error", perr.Err)
	}
}

// afterCommit runs best-effort follow-ups. The snapshot is already durable, so
// failures here are logged rather than returned.
func (i *Ingester) afterCommit(ctx context.Context, logger *slog.Logger, report Report) {
	for _, inv := range i.invalidators {
		if err := inv.Purge(ctx); err != nil {
			logger.Warn("cache purge failed", "error", err)
		}
	}
	if i.publisher == nil {
		return
	}
	if err := i.publisher.PublishSummaries(ctx, report.RunID, report.Summaries); err != nil {
		logger.Warn("summary publish failed", "error", err)
	}
}
