package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	ids := []string{"IND01116", unmappedStation}

	rowsA := generate(&a, ids, 5, 42)
	rowsB := generate(&b, ids, 5, 42)

	assert.Equal(t, rowsA, rowsB)
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, 2*5*len(params), rowsA)
}

func TestGenerate_ParsesCleanly(t *testing.T) {
	var buf bytes.Buffer
	rows := generate(&buf, []string{"IND01116", "IND01237"}, 10, 7)

	parser, err := domain.NewParser(strings.NewReader(buf.String()))
	require.NoError(t, err)
	ms := parser.Collect()

	require.NoError(t, parser.Err())
	assert.Empty(t, parser.Errors())
	assert.Len(t, ms, rows)
	assert.Equal(t, rows, parser.Rows())
}

func TestStationIDs_AppendsUnmapped(t *testing.T) {
	ids := stationIDs([]domain.CityStation{
		{City: "Pune", StationID: "IND00761"},
		{City: "Bangalore", StationID: "IND01116"},
		{City: "Pune", StationID: "IND00761"},
	})
	assert.Equal(t, []string{"IND00761", "IND01116", unmappedStation}, ids)
}
