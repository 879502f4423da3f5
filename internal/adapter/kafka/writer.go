package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aquaaware/water-quality-service/internal/config"
	"github.com/aquaaware/water-quality-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// summaryMessage is the wire form of a recomputed city summary.
type summaryMessage struct {
	RunID          string   `json:"runId"`
	City           string   `json:"city"`
	Quality        string   `json:"quality"`
	QualityScore   float64  `json:"qualityScore"`
	LastUpdated    *string  `json:"lastUpdated"`
	MainPollutants []string `json:"mainPollutants"`
	ComputedAt     string   `json:"computedAt"`
}

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes city summaries to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSummaries writes one message per city, keyed by city so a compacted
// topic retains the latest summary of each.
func (w *Writer) PublishSummaries(ctx context.Context, runID string, summaries []domain.CitySummary) error {
	if len(summaries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(summaries))
	for i := range summaries {
		msg, err := serializeToMessage(runID, summaries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish summaries: %w", err)
	}
	w.logger.Debug("summaries published", "run_id", runID, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CitySummary into a Kafka message.
func serializeToMessage(runID string, s domain.CitySummary) (kafkago.Message, error) {
	computedAt := s.ComputedAt.UTC().Format(time.RFC3339)
	body := summaryMessage{
		RunID:          runID,
		City:           s.City,
		Quality:        string(s.Quality),
		QualityScore:   s.QualityScore,
		MainPollutants: s.MainPollutants,
		ComputedAt:     computedAt,
	}
	if body.MainPollutants == nil {
		body.MainPollutants = []string{}
	}
	if !s.LastUpdated.IsZero() {
		d := s.LastUpdated.Format(domain.DateLayout)
		body.LastUpdated = &d
	}

	data, err := json.Marshal(body)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize city summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "quality", Value: []byte(s.Quality)},
			{Key: "run_id", Value: []byte(runID)},
			{Key: "computed_at", Value: []byte(computedAt)},
		},
	}, nil
}
