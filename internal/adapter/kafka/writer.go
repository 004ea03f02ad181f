package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-brief-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces briefing events to a Kafka topic.
// It implements domain.BriefingPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the briefing topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one briefing event. Events for the same
// location hash to the same partition.
func (w *Writer) Publish(ctx context.Context, event domain.BriefingEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish briefing event: %w", err)
	}
	w.logger.Debug("briefing event published", "id", event.ID, "kind", event.Kind)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a BriefingEvent into a Kafka message keyed by
// the rounded location.
func serializeToMessage(event domain.BriefingEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize briefing event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%.2f,%.2f", event.Location.Lat, event.Location.Lon)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "generated_at", Value: []byte(event.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
