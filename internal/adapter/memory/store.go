// Package memory provides an in-process summary store, used for dry runs and
// local development without Postgres.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync/atomic"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/pipeline"
)

// DetailLimit caps the measurements returned for a city, newest first.
const DetailLimit = 100

type state struct {
	summaries []domain.CitySummary
	byCity    map[string][]domain.Measurement
}

// Store holds the last committed snapshot. Readers always see either the
// previous snapshot or the new one, never a mix.
type Store struct {
	current atomic.Pointer[state]
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&state{byCity: map[string][]domain.Measurement{}})
	return s
}

// ReplaceAll swaps in a fresh snapshot.
func (s *Store) ReplaceAll(ctx context.Context, snap pipeline.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cityByStation := make(map[string]string, len(snap.Stations))
	for _, p := range snap.Stations {
		cityByStation[p.StationID] = p.City
	}

	next := &state{
		summaries: slices.Clone(snap.Summaries),
		byCity:    make(map[string][]domain.Measurement),
	}
	// Walk backwards so that, after a stable sort, later rows win date ties.
	for _, m := range slices.Backward(snap.Measurements) {
		if city, ok := cityByStation[m.StationID]; ok {
			next.byCity[city] = append(next.byCity[city], m)
		}
	}
	for city, ms := range next.byCity {
		slices.SortStableFunc(ms, func(a, b domain.Measurement) int {
			return b.SampleDate.Compare(a.SampleDate)
		})
		if len(ms) > DetailLimit {
			next.byCity[city] = ms[:DetailLimit]
		}
	}
	slices.SortFunc(next.summaries, func(a, b domain.CitySummary) int { return cmp.Compare(a.City, b.City) })

	s.current.Store(next)
	return nil
}

// ListCitySummaries returns every summary ordered by city.
func (s *Store) ListCitySummaries(context.Context) ([]domain.CitySummary, error) {
	return slices.Clone(s.current.Load().summaries), nil
}

// GetCityDetail returns the summary and recent measurements for city. An
// unknown city yields a nil Summary and no error.
func (s *Store) GetCityDetail(_ context.Context, city string) (domain.CityDetail, error) {
	st := s.current.Load()
	detail := domain.CityDetail{Measurements: slices.Clone(st.byCity[city])}
	if detail.Measurements == nil {
		detail.Measurements = []domain.Measurement{}
	}
	for i := range st.summaries {
		if st.summaries[i].City == city {
			summary := st.summaries[i]
			detail.Summary = &summary
			break
		}
	}
	return detail, nil
}

// CheckReadiness always succeeds.
func (s *Store) CheckReadiness(context.Context) error { return nil }
