package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for sample dates and last_updated.
const DateLayout = "2006-01-02"

var (
	// ErrMissingColumn is returned when the input header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrStationConflict is returned when a station is mapped to more than one city.
	ErrStationConflict = errors.New("station mapped to multiple cities")
)

// Measurement is a single normalized station reading. It is never mutated after parsing.
type Measurement struct {
	StationID     string
	SampleDate    time.Time
	SampleTime    string
	Depth         *float64
	ParameterCode string
	Value         *float64
	Unit          string
	DataQuality   string
}

// CityStation is one row of the station-city map.
type CityStation struct {
	City      string `yaml:"city" json:"city"`
	StationID string `yaml:"station_id" json:"station_id"`
}

// QualityLabel is the discrete rating derived from a quality score.
type QualityLabel string

const (
	Excellent QualityLabel = "Excellent"
	Good      QualityLabel = "Good"
	Fair      QualityLabel = "Fair"
	Poor      QualityLabel = "Poor"
	Critical  QualityLabel = "Critical"
)

// CitySummary is the published aggregate for one city.
type CitySummary struct {
	City           string
	Quality        QualityLabel
	QualityScore   float64 // rounded
	LastUpdated    time.Time
	MainPollutants []string
	ComputedAt     time.Time
}

// CityDetail is the read model behind the per-city endpoint. Summary is nil for
// unknown cities.
type CityDetail struct {
	Summary      *CitySummary
	Measurements []Measurement
}

// ParseError describes a malformed input row that was excluded from the batch.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EncodePollutants serializes a tag list for storage as text.
func EncodePollutants(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags) //nolint:errchkjson // []string always marshals
	return string(b)
}

// DecodePollutants parses a stored pollutant list. Stored values are normally a
// JSON array, but older rows may hold a comma-separated list.
func DecodePollutants(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err == nil {
		if tags == nil {
			return []string{}
		}
		return tags
	}
	parts := strings.Split(strings.Trim(s, "[]{}"), ",")
	tags = make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
