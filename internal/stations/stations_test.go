package stations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_BuildsIndex(t *testing.T) {
	idx, err := domain.NewStationIndex(Default())
	require.NoError(t, err)

	assert.Len(t, idx.Cities(), 9)
	city, ok := idx.City("IND00917")
	assert.True(t, ok)
	assert.Equal(t, "Varanasi", city)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	rows, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), rows)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.yaml")
	content := `stations:
  - city: Pune
    station_id: IND00761
  - city: Pune
    station_id: IND00762
  - city: Goa
    station_id: IND00900
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	idx, err := Index(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Goa", "Pune"}, idx.Cities())

	city, ok := idx.City("IND00762")
	assert.True(t, ok)
	assert.Equal(t, "Pune", city)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read station map")
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("stations: [oops"))
	require.Error(t, err)

	_, err = Parse([]byte("stations: []"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stations")
}

func TestIndex_Conflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.yaml")
	content := `stations:
  - {city: Pune, station_id: IND00761}
  - {city: Mumbai, station_id: IND00761}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Index(path)
	require.ErrorIs(t, err, domain.ErrStationConflict)
}

func TestLoad_ShippedConfigMatchesDefault(t *testing.T) {
	rows, err := Load(filepath.Join("..", "..", "configs", "stations.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), rows)
}

func TestDiff(t *testing.T) {
	persisted := []domain.CityStation{
		{City: "Pune", StationID: "IND00761"},
		{City: "Mumbai", StationID: "IND00747"},
		{City: "Delhi", StationID: "IND00257"},
	}
	configured := []domain.CityStation{
		{City: "Pune", StationID: "IND00761"},
		{City: "Thane", StationID: "IND00747"},
		{City: "Goa", StationID: "IND00900"},
	}

	added, removed := Diff(persisted, configured)
	assert.Equal(t, []domain.CityStation{
		{City: "Thane", StationID: "IND00747"},
		{City: "Goa", StationID: "IND00900"},
	}, added)
	assert.Equal(t, []domain.CityStation{
		{City: "Mumbai", StationID: "IND00747"},
		{City: "Delhi", StationID: "IND00257"},
	}, removed)

	added, removed = Diff(Default(), Default())
	assert.Empty(t, added)
	assert.Empty(t, removed)
}
