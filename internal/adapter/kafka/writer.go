// Package kafka publishes consolidated records to the downstream topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/skogdata/forest-etl/internal/domain"
)

// Writer produces consolidated records to a Kafka topic. It implements
// pipeline.RecordSink; one CommitBatch call publishes one chunk.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// CommitBatch serializes and publishes one chunk of records in a single
// WriteMessages call, so the chunk commits whole or fails whole.
func (w *Writer) CommitBatch(ctx context.Context, runID string, records []*domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i, rec := range records {
		msg, err := serializeToMessage(runID, rec)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one record into a Kafka message keyed by its
// join identifier, so all versions of a grid cell land on one partition.
func serializeToMessage(runID string, rec *domain.Record) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %d: %w", rec.JoinID, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(rec.JoinID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "processed_at", Value: []byte(rec.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
