package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// StationIndex is a reverse index from station number to city.
type StationIndex struct {
	cityByStation map[string]string
	cities        []string
}

// NewStationIndex builds the index in a single pass. Repeated identical pairs are
// ignored; a station assigned to two different cities is an error.
func NewStationIndex(rows []CityStation) (*StationIndex, error) {
	idx := &StationIndex{cityByStation: make(map[string]string, len(rows))}
	seen := make(map[string]struct{})

	for _, row := range rows {
		if row.City == "" || row.StationID == "" {
			return nil, fmt.Errorf("station map: empty city or station in %+v", row)
		}
		if existing, ok := idx.cityByStation[row.StationID]; ok {
			if existing != row.City {
				return nil, fmt.Errorf("%w: %s -> %s, %s", ErrStationConflict, row.StationID, existing, row.City)
			}
			continue
		}
		idx.cityByStation[row.StationID] = row.City
		if _, ok := seen[row.City]; !ok {
			seen[row.City] = struct{}{}
			idx.cities = append(idx.cities, row.City)
		}
	}
	slices.Sort(idx.cities)
	return idx, nil
}

// City returns the city a station rolls up into.
func (i *StationIndex) City(stationID string) (string, bool) {
	city, ok := i.cityByStation[stationID]
	return city, ok
}

// Cities returns every mapped city in sorted order.
func (i *StationIndex) Cities() []string {
	return slices.Clone(i.cities)
}

// Pairs returns the normalized map rows, sorted by city then station.
func (i *StationIndex) Pairs() []CityStation {
	out := make([]CityStation, 0, len(i.cityByStation))
	for station, city := range i.cityByStation {
		out = append(out, CityStation{City: city, StationID: station})
	}
	slices.SortFunc(out, func(a, b CityStation) int {
		return cmp.Or(strings.Compare(a.City, b.City), strings.Compare(a.StationID, b.StationID))
	})
	return out
}
