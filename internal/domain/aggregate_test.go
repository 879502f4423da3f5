package domain

import (
	"slices"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  QualityLabel
	}{
		{100, Excellent},
		{80.0, Excellent},
		{79.99, Good},
		{60.0, Good},
		{59.99, Fair},
		{40.0, Fair},
		{39.99, Poor},
		{20.0, Poor},
		{19.99, Critical},
		{0, Critical},
		{115, Excellent},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.score), "score %v", tt.score)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 4, 27, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	defer SetClock(nil)

	t.Run("label from unrounded score", func(t *testing.T) {
		s := Summarize(&CityScore{City: "Pune", Score: 79.6, Tags: []string{TagSolids}})

		assert.Equal(t, Good, s.Quality)
		assert.Equal(t, 80.0, s.QualityScore)
		assert.Equal(t, []string{TagSolids}, s.MainPollutants)
		assert.Equal(t, now, s.ComputedAt)
	})

	t.Run("half rounds up", func(t *testing.T) {
		s := Summarize(&CityScore{City: "Pune", Score: 42.5})
		assert.Equal(t, 43.0, s.QualityScore)
		assert.Equal(t, Fair, s.Quality)
	})

	t.Run("no tags yields empty list", func(t *testing.T) {
		s := Summarize(NewCityScore("Delhi"))
		assert.NotNil(t, s.MainPollutants)
		assert.Empty(t, s.MainPollutants)
		assert.Equal(t, Excellent, s.Quality)
		assert.True(t, s.LastUpdated.IsZero())
	})
}

func TestSummarizeAll_SortedByCity(t *testing.T) {
	res := ScoreResult{Cities: map[string]*CityScore{
		"Varanasi": NewCityScore("Varanasi"),
		"Cochin":   NewCityScore("Cochin"),
		"Mumbai":   NewCityScore("Mumbai"),
	}}

	out := SummarizeAll(res)
	names := make([]string, 0, len(out))
	for _, s := range out {
		names = append(names, s.City)
	}
	assert.Equal(t, []string{"Cochin", "Mumbai", "Varanasi"}, names)
}

func TestSummarize_ScoreBoundedAboveInitial(t *testing.T) {
	// 100 -> 20 -> 5 -> 115 under absolute-difference accumulation.
	ms := []Measurement{
		meas(testStation, "Pb-Dis", 13, 0),
		meas(testStation, "pH", 9.0, 1),
		meas(testStation, "TS", 400, 2),
	}
	res := NewScorer(DefaultRules(), nil).ScoreCities(slices.Values(ms), testIndex(t))
	require.InDelta(t, 115.0, res.Cities[testCity].Score, 1e-9)

	s := Summarize(res.Cities[testCity])
	assert.Equal(t, 100.0, s.QualityScore)
	assert.Equal(t, Excellent, s.Quality)
	assert.Equal(t, []string{TagLead, TagPH, TagSolids}, s.MainPollutants)
}
