package postgres

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_DeclaresTables(t *testing.T) {
	for _, table := range []string{"city_station_map", "measurements", "city_summaries"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestMeasurementColumns_MatchSchema(t *testing.T) {
	for _, col := range measurementColumns {
		assert.Contains(t, schema, col)
	}
}

func TestNullableDate(t *testing.T) {
	assert.Nil(t, nullableDate(time.Time{}))

	d := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	got := nullableDate(d)
	require.NotNil(t, got)
	assert.True(t, d.Equal(*got))
}

func TestOpenWithRetry_InvalidURL(t *testing.T) {
	_, err := OpenWithRetry(context.Background(), "host=localhost port=notaport", 1, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create pool")
}

func TestOpenWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OpenWithRetry(ctx, "postgres://wq@127.0.0.1:1/wq?connect_timeout=1", 5, slog.Default())
	require.ErrorIs(t, err, context.Canceled)
}
