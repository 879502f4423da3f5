package domain

import (
	"math"
	"slices"
	"strings"
)

// Label maps an unrounded score to its quality label.
func Label(score float64) QualityLabel {
	switch {
	case score >= 80:
		return Excellent
	case score >= 60:
		return Good
	case score >= 40:
		return Fair
	case score >= 20:
		return Poor
	default:
		return Critical
	}
}

// Summarize converts a final accumulation state into the published summary.
// The label comes from the raw score; the reported score is bounded to
// [0, InitialScore] and rounded.
func Summarize(cs *CityScore) CitySummary {
	tags := slices.Clone(cs.Tags)
	if tags == nil {
		tags = []string{}
	}
	return CitySummary{
		City:           cs.City,
		Quality:        Label(cs.Score),
		QualityScore:   math.Round(min(max(cs.Score, 0), InitialScore)),
		LastUpdated:    cs.LastUpdated,
		MainPollutants: tags,
		ComputedAt:     computedAt(),
	}
}

// SummarizeAll summarizes every city in a result, sorted by city name.
func SummarizeAll(res ScoreResult) []CitySummary {
	out := make([]CitySummary, 0, len(res.Cities))
	for _, cs := range res.Cities {
		out = append(out, Summarize(cs))
	}
	slices.SortFunc(out, func(a, b CitySummary) int { return strings.Compare(a.City, b.City) })
	return out
}
