// Package stations supplies the station-city map used by ingestion.
package stations

import (
	"fmt"
	"os"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Default returns the built-in map of monitored cities to their GEMS stations.
func Default() []domain.CityStation {
	return []domain.CityStation{
		{City: "Bangalore", StationID: "IND01116"},
		{City: "Chennai", StationID: "IND01237"},
		{City: "Mumbai", StationID: "IND00747"},
		{City: "Delhi", StationID: "IND00257"},
		{City: "Kolkata", StationID: "IND00210"},
		{City: "Hyderabad", StationID: "IND01734"},
		{City: "Pune", StationID: "IND00761"},
		{City: "Cochin", StationID: "IND00828"},
		{City: "Varanasi", StationID: "IND00917"},
	}
}

type file struct {
	Stations []domain.CityStation `yaml:"stations"`
}

// Load reads a YAML station map:
//
//	stations:
//	  - city: Bangalore
//	    station_id: IND01116
//
// An empty path returns Default.
func Load(path string) ([]domain.CityStation, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read station map: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML station map document.
func Parse(data []byte) ([]domain.CityStation, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse station map: %w", err)
	}
	if len(f.Stations) == 0 {
		return nil, fmt.Errorf("parse station map: no stations defined")
	}
	return f.Stations, nil
}

// Index loads the map at path and builds the reverse index.
func Index(path string) (*domain.StationIndex, error) {
	rows, err := Load(path)
	if err != nil {
		return nil, err
	}
	return domain.NewStationIndex(rows)
}

// Diff compares a previously persisted map with the configured one. added
// holds pairs only in configured, removed holds pairs only in persisted; a
// station that moved city appears in both.
func Diff(persisted, configured []domain.CityStation) (added, removed []domain.CityStation) {
	seen := make(map[domain.CityStation]bool, len(persisted))
	for _, p := range persisted {
		seen[p] = true
	}
	want := make(map[domain.CityStation]bool, len(configured))
	for _, p := range configured {
		want[p] = true
		if !seen[p] {
			added = append(added, p)
		}
	}
	for _, p := range persisted {
		if !want[p] {
			removed = append(removed, p)
		}
	}
	return added, removed
}
