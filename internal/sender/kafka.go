package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Tiliavir/punchsync/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors classified punches to a Kafka topic, one message per
// punch keyed by user id so a user's IN and OUT land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}
}

// Send publishes punches. The outcome counts every acknowledged record as
// processed; the broker does no deduplication.
func (k *KafkaPublisher) Send(ctx context.Context, batchID string, punches []model.ClassifiedPunch) (model.Outcome, error) {
	if len(punches) == 0 {
		return model.Outcome{}, nil
	}

	now := time.Now()
	msgs := make([]kafka.Message, 0, len(punches))
	for _, p := range punches {
		value, err := json.Marshal(NewRecord(p))
		if err != nil {
			return model.Outcome{}, fmt.Errorf("%w: encoding record: %w", ErrSend, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(p.UserID),
			Value:   value,
			Time:    now,
			Headers: []kafka.Header{{Key: "batch_id", Value: []byte(batchID)}},
		})
	}

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return model.Outcome{}, fmt.Errorf("%w: publishing to kafka: %w", ErrSend, err)
	}
	return model.Outcome{
		Message:          "published",
		TotalRecords:     len(punches),
		ProcessedRecords: len(punches),
	}, nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
