package domain

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"time"
)

// InitialScore is the score every city starts from before any measurement.
const InitialScore = 100.0

// Accumulator folds a rule impact into a running score.
type Accumulator func(score, impact float64) float64

// AbsoluteDifference is the published accumulation rule, |score - impact|.
// It is order-sensitive and can raise a score that is already below the impact.
func AbsoluteDifference(score, impact float64) float64 {
	return math.Abs(score - impact)
}

// ClampedSubtraction floors the running score at zero instead.
func ClampedSubtraction(score, impact float64) float64 {
	return math.Max(0, score-impact)
}

// AccumulatorByName resolves the SCORE_ACCUMULATION setting.
func AccumulatorByName(name string) (Accumulator, error) {
	switch name {
	case "", "absolute":
		return AbsoluteDifference, nil
	case "clamped":
		return ClampedSubtraction, nil
	default:
		return nil, fmt.Errorf("unknown score accumulation %q (want absolute or clamped)", name)
	}
}

// CityScore is the running accumulation state for one city.
type CityScore struct {
	City        string
	Score       float64
	Tags        []string // first-fired order, no duplicates
	LastUpdated time.Time

	Measurements int // measurements resolved to this city
	Fired        int // measurements that triggered a rule
}

// NewCityScore returns the initial state for a city.
func NewCityScore(city string) *CityScore {
	return &CityScore{City: city, Score: InitialScore}
}

// ScoreResult is the outcome of replaying a measurement set.
type ScoreResult struct {
	Cities  map[string]*CityScore
	Dropped int            // measurements from unmapped stations
	ByTag   map[string]int // rule firings per pollutant tag
}

// Scorer applies a rule table with a given accumulator.
type Scorer struct {
	rules      RuleTable
	accumulate Accumulator
}

// NewScorer creates a Scorer. A nil accumulator selects AbsoluteDifference.
func NewScorer(rules RuleTable, accumulate Accumulator) *Scorer {
	if accumulate == nil {
		accumulate = AbsoluteDifference
	}
	return &Scorer{rules: rules, accumulate: accumulate}
}

// Apply folds one measurement, already resolved to the city, into its state. It
// returns the tag of the rule that fired, or "" if none did. The last-updated
// date advances whether or not a rule fires.
func (s *Scorer) Apply(cs *CityScore, m Measurement) string {
	cs.Measurements++
	if m.SampleDate.After(cs.LastUpdated) {
		cs.LastUpdated = m.SampleDate
	}

	rule, ok := s.rules[m.ParameterCode]
	if !ok || m.Value == nil {
		return ""
	}
	v := *m.Value
	if !rule.Unsafe(v) {
		return ""
	}

	cs.Score = s.accumulate(cs.Score, rule.Impact(v))
	if !slices.Contains(cs.Tags, rule.Tag) {
		cs.Tags = append(cs.Tags, rule.Tag)
	}
	cs.Fired++
	return rule.Tag
}

// ScoreCities replays measurements in the order given. Every city in the index
// gets an entry, including cities with no measurements. Measurements from
// unmapped stations are counted in Dropped and otherwise ignored.
func (s *Scorer) ScoreCities(measurements iter.Seq[Measurement], index *StationIndex) ScoreResult {
	res := ScoreResult{
		Cities: make(map[string]*CityScore),
		ByTag:  make(map[string]int),
	}
	for _, city := range index.Cities() {
		res.Cities[city] = NewCityScore(city)
	}

	for m := range measurements {
		city, ok := index.City(m.StationID)
		if !ok {
			res.Dropped++
			continue
		}
		if tag := s.Apply(res.Cities[city], m); tag != "" {
			res.ByTag[tag]++
		}
	}
	return res
}
