package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/campus-foryou-service/internal/config"
	"github.com/couchcryptid/campus-foryou-service/internal/domain"
	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces impression events to a Kafka topic.
// It implements recommend.ImpressionPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured impressions topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaImpressionsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        cfg.KafkaAsync,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
	}
	return &Writer{writer: w, logger: logger}
}

// PublishImpression serializes and publishes one impression, keyed by
// session so a session's impressions stay ordered within a partition.
func (w *Writer) PublishImpression(ctx context.Context, imp domain.Impression) error {
	msg, err := serializeToMessage(imp)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish impression: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Impression into a Kafka message.
func serializeToMessage(imp domain.Impression) (kafkago.Message, error) {
	data, err := json.Marshal(imp)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize impression: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(imp.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("foryou_impression")},
			{Key: "seed", Value: []byte(strconv.FormatUint(uint64(imp.Seed), 10))},
			{Key: "served_at", Value: []byte(imp.ServedAt.Format(time.RFC3339))},
		},
	}, nil
}
