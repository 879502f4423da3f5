package domain

import "math"

// Pollutant tags emitted by DefaultRules.
const (
	TagPH       = "pH imbalance"
	TagLead     = "Lead contamination"
	TagChlorine = "High chlorine"
	TagFluoride = "Low fluoride"
	TagSolids   = "High total solids"
	TagHardness = "Water hardness"
)

// ParameterRule is the deviation rule for one parameter code.
type ParameterRule struct {
	Unsafe func(v float64) bool
	Impact func(v float64) float64
	Tag    string
}

// RuleTable maps parameter codes to their deviation rule. Codes without an
// entry never affect a score.
type RuleTable map[string]ParameterRule

// DefaultRules returns the published rule table. A fresh map is returned on each
// call so callers cannot mutate shared state.
func DefaultRules() RuleTable {
	hardness := ParameterRule{
		Unsafe: func(v float64) bool { return v > 150 },
		Impact: func(v float64) float64 { return (v - 150) * 0.2 },
		Tag:    TagHardness,
	}

	return RuleTable{
		"pH": {
			Unsafe: func(v float64) bool { return v < 6.5 || v > 8.5 },
			Impact: func(float64) float64 { return 15 },
			Tag:    TagPH,
		},
		"Pb-Dis": {
			Unsafe: func(v float64) bool { return v > 0.01 },
			Impact: func(v float64) float64 { return math.Min(v*50, 80) },
			Tag:    TagLead,
		},
		"Cl-Dis": {
			Unsafe: func(v float64) bool { return v > 5 },
			Impact: func(v float64) float64 { return v * 0.5 },
			Tag:    TagChlorine,
		},
		"F-Dis": {
			Unsafe: func(v float64) bool { return v < 0.5 },
			Impact: func(float64) float64 { return 5 },
			Tag:    TagFluoride,
		},
		"TS": {
			Unsafe: func(v float64) bool { return v > 50 },
			Impact: func(v float64) float64 { return v * 0.3 },
			Tag:    TagSolids,
		},
		"H-T":  hardness,
		"H-Ca": hardness,
	}
}
