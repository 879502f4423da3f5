package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/aquaaware/water-quality-service/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	newLogger(&config.Config{LogLevel: "error", LogFormat: "json"})

	ctx := context.Background()
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelError))
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelWarn))
}
