// Package postgres implements the summary and measurement store on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/pipeline"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxConnectBackoff = 15 * time.Second

// replaceLockID is the advisory lock key serializing ReplaceAll calls.
const replaceLockID int64 = 0x7771_5f72_6570 // "wq_rep"

// DetailLimit caps the measurements returned for a city, newest first.
const DetailLimit = 100

//go:embed schema.sql
var schema string

var measurementColumns = []string{
	"station_id", "sample_date", "sample_time", "depth",
	"parameter_code", "value", "unit", "data_quality",
}

// Store is a pgxpool-backed summary store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// OpenWithRetry calls Open up to attempts times with exponential backoff, for
// databases that start alongside the service.
func OpenWithRetry(ctx context.Context, databaseURL string, attempts int, logger *slog.Logger) (*Store, error) {
	backoff := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		store, err := Open(ctx, databaseURL)
		if err == nil {
			return store, nil
		}
		if attempt >= attempts {
			return nil, err
		}
		logger.Warn("database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = sharedretry.NextBackoff(backoff, maxConnectBackoff)
	}
}

// Migrate applies the schema. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ReplaceAll replaces the station map, measurements, and summaries in a single
// transaction. Readers see the previous snapshot until commit. On any error the
// transaction is rolled back and the previous snapshot stays visible.
func (s *Store) ReplaceAll(ctx context.Context, snap pipeline.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Concurrent writers queue here. Rows are cleared with DELETE, not TRUNCATE,
	// so readers never wait on the replace.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, replaceLockID); err != nil {
		return fmt.Errorf("acquire replace lock: %w", err)
	}
	for _, table := range []string{"city_station_map", "measurements", "city_summaries"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"measurements"}, measurementColumns,
		pgx.CopyFromSlice(len(snap.Measurements), func(i int) ([]any, error) {
			m := snap.Measurements[i]
			return []any{
				m.StationID, m.SampleDate, m.SampleTime, m.Depth,
				m.ParameterCode, m.Value, m.Unit, m.DataQuality,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy measurements: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range snap.Stations {
		batch.Queue(`INSERT INTO city_station_map (city, station_id) VALUES ($1, $2)`, p.City, p.StationID)
	}
	for _, sum := range snap.Summaries {
		batch.Queue(`
			INSERT INTO city_summaries (city, quality, quality_score, last_updated, main_pollutants, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			sum.City, string(sum.Quality), sum.QualityScore, nullableDate(sum.LastUpdated),
			domain.EncodePollutants(sum.MainPollutants), sum.ComputedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert map and summaries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadStationMap returns the persisted station-city pairs.
func (s *Store) LoadStationMap(ctx context.Context) ([]domain.CityStation, error) {
	rows, err := s.pool.Query(ctx, `SELECT city, station_id FROM city_station_map ORDER BY city, station_id`)
	if err != nil {
		return nil, fmt.Errorf("query station map: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CityStation, error) {
		var p domain.CityStation
		err := row.Scan(&p.City, &p.StationID)
		return p, err
	})
}

const summaryColumns = `city, quality, quality_score, last_updated, main_pollutants, computed_at`

// ListCitySummaries returns every summary ordered by city.
func (s *Store) ListCitySummaries(ctx context.Context) ([]domain.CitySummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+summaryColumns+` FROM city_summaries ORDER BY city`)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CitySummary, error) {
		return scanSummary(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan summaries: %w", err)
	}
	return summaries, nil
}

// GetCityDetail returns the summary and the DetailLimit most recent
// measurements for city. An unknown city yields a nil Summary and no error.
func (s *Store) GetCityDetail(ctx context.Context, city string) (domain.CityDetail, error) {
	detail := domain.CityDetail{Measurements: []domain.Measurement{}}

	row := s.pool.QueryRow(ctx, `SELECT `+summaryColumns+` FROM city_summaries WHERE city = $1`, city)
	summary, err := scanSummary(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return detail, fmt.Errorf("query summary %q: %w", city, err)
	default:
		detail.Summary = &summary
	}

	rows, err := s.pool.Query(ctx, `
		SELECT m.station_id, m.sample_date, m.sample_time, m.depth,
		       m.parameter_code, m.value, m.unit, m.data_quality
		FROM measurements m
		JOIN city_station_map s ON s.station_id = m.station_id
		WHERE s.city = $1
		ORDER BY m.sample_date DESC, m.id DESC
		LIMIT $2`, city, DetailLimit)
	if err != nil {
		return detail, fmt.Errorf("query measurements %q: %w", city, err)
	}
	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Measurement, error) {
		var m domain.Measurement
		err := row.Scan(&m.StationID, &m.SampleDate, &m.SampleTime, &m.Depth,
			&m.ParameterCode, &m.Value, &m.Unit, &m.DataQuality)
		return m, err
	})
	if err != nil {
		return detail, fmt.Errorf("scan measurements %q: %w", city, err)
	}
	if len(ms) > 0 {
		detail.Measurements = ms
	}
	return detail, nil
}

func scanSummary(row pgx.Row) (domain.CitySummary, error) {
	var (
		sum         domain.CitySummary
		quality     string
		lastUpdated *time.Time
		pollutants  string
	)
	if err := row.Scan(&sum.City, &quality, &sum.QualityScore, &lastUpdated, &pollutants, &sum.ComputedAt); err != nil {
		return domain.CitySummary{}, err
	}
	sum.Quality = domain.QualityLabel(quality)
	if lastUpdated != nil {
		sum.LastUpdated = lastUpdated.UTC()
	}
	sum.MainPollutants = domain.DecodePollutants(pollutants)
	return sum, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
