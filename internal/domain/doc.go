// Package domain models GEMS/Water station measurements and the per-city water
// quality summary derived from them.
//
// # Data Source
//
// Measurements come from GEMS/Water station exports: semicolon-delimited text
// with every field wrapped in double quotes. The header is:
//
//	"GEMS.Station.Number";"Sample.Date";"Sample.Time";"Depth";"Parameter.Code";
//	"Analysis.Method.Code";"Value.Flags";"Value";"Unit";"Data.Quality"
//
// Station numbers are opaque codes such as "IND01116". Sample dates are ISO
// calendar dates. Value and Depth are decimals; an empty or non-numeric Value is
// kept as null rather than rejecting the row. See [Parser].
//
// # Stations and Cities
//
// A city is the public aggregation unit. One or more stations roll up into a
// city through the station-city map. Measurements from stations that are not in
// the map are excluded from scoring and counted. See [StationIndex].
//
// # Scoring
//
// Every city starts at 100. Measurements are replayed in input order; for each
// one whose parameter has a rule and whose value is unsafe, the impact is folded
// into the running score by an [Accumulator] and the rule's tag is recorded.
//
//	pH          <6.5 or >8.5   impact 15                  "pH imbalance"
//	Pb-Dis      >0.01          impact min(v*50, 80)       "Lead contamination"
//	Cl-Dis      >5             impact v*0.5               "High chlorine"
//	F-Dis       <0.5           impact 5                   "Low fluoride"
//	TS          >50            impact v*0.3               "High total solids"
//	H-T, H-Ca   >150           impact (v-150)*0.2         "Water hardness"
//
// The default accumulator is |score - impact|, which makes the result depend on
// measurement order and lets a large impact raise a low score. It is kept for
// compatibility with published summaries; [ClampedSubtraction] is the
// alternative pending product clarification.
//
// # Labels
//
// The label is derived from the unrounded score:
//
//	>=80 Excellent | >=60 Good | >=40 Fair | >=20 Poor | else Critical
//
// The published score is the score rounded to the nearest integer.
package domain
