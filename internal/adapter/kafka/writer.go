package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/sorasolar/site-api/internal/config"
	"github.com/sorasolar/site-api/internal/domain"
)

// LeadWriter produces accepted contact leads to a Kafka topic.
// It implements intake.LeadSink.
type LeadWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewLeadWriter creates a Kafka producer for the configured leads topic.
func NewLeadWriter(cfg *config.Config, logger *slog.Logger) *LeadWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaLeadsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	return &LeadWriter{writer: w, logger: logger}
}

// Publish writes one lead keyed by its id.
func (w *LeadWriter) Publish(ctx context.Context, lead domain.Lead) error {
	msg, err := serializeLead(lead)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish lead %s: %w", lead.ID, err)
	}
	w.logger.Debug("lead published", "lead_id", lead.ID, "topic", w.writer.Topic)
	return nil
}

func (w *LeadWriter) Close() error {
	return w.writer.Close()
}

// serializeLead marshals a Lead into a Kafka message.
func serializeLead(lead domain.Lead) (kafkago.Message, error) {
	data, err := json.Marshal(lead)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize lead: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(lead.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "lead_id", Value: []byte(lead.ID)},
			{Key: "received_at", Value: []byte(lead.ReceivedAt.Format(time.RFC3339))},
		},
	}, nil
}
