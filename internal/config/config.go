package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	QueryTimeout    time.Duration

	// DatabaseURL selects the PostgreSQL store; empty serves from memory.
	DatabaseURL string

	// Read-path cache. RedisAddr empty falls back to an in-process LRU of CacheSize
	// entries; CacheSize 0 with no Redis disables caching. CacheTTL 0 keeps
	// entries until the next ingest purges them.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CacheSize     int

	// Summary publishing, disabled when no brokers are set.
	KafkaBrokers      []string
	KafkaSummaryTopic string

	IngestFile        string
	IngestSchedule    string
	StationMapFile    string
	ScoreAccumulation string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	queryTimeout, err := parsePositiveDuration("QUERY_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseNonNegativeDuration("CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseNonNegativeInt("CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		QueryTimeout:    queryTimeout,

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		CacheTTL:      cacheTTL,
		CacheSize:     cacheSize,

		KafkaBrokers:      brokers,
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "water-quality-summaries"),

		IngestFile:        os.Getenv("INGEST_FILE"),
		IngestSchedule:    os.Getenv("INGEST_SCHEDULE"),
		StationMapFile:    os.Getenv("STATION_MAP_FILE"),
		ScoreAccumulation: sharedcfg.EnvOrDefault("SCORE_ACCUMULATION", "absolute"),
	}

	if cfg.DatabaseURL != "" &&
		!strings.HasPrefix(cfg.DatabaseURL, "postgres://") && !strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		return nil, errors.New("DATABASE_URL must be a postgres:// or postgresql:// URL")
	}
	switch cfg.ScoreAccumulation {
	case "absolute", "clamped":
	default:
		return nil, fmt.Errorf("invalid SCORE_ACCUMULATION %q (want absolute or clamped)", cfg.ScoreAccumulation)
	}
	if cfg.IngestSchedule != "" {
		if cfg.IngestFile == "" {
			return nil, errors.New("INGEST_SCHEDULE is set but INGEST_FILE is not")
		}
		if _, err := cron.ParseStandard(cfg.IngestSchedule); err != nil {
			return nil, fmt.Errorf("invalid INGEST_SCHEDULE: %w", err)
		}
	}

	return cfg, nil
}

// KafkaEnabled reports whether summaries should be published after each run.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
