package facades

//go:generate mockgen -source=events.go -destination=events_mock.go -package=facades

import (
	"context"
	"encoding/json"

	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// OperationEventPublisher publishes operation lifecycle events to Kafka,
// keyed by operation id so every event of one operation lands in one partition.
type OperationEventPublisher struct {
	writer KafkaWriter
}

// NewOperationEventPublisher creates a new OperationEventPublisher. A nil
// writer disables publishing.
func NewOperationEventPublisher(writer KafkaWriter) *OperationEventPublisher {
	return &OperationEventPublisher{writer: writer}
}

// EmitOperationEvent publishes event.
func (p *OperationEventPublisher) EmitOperationEvent(ctx context.Context, event models.OperationEvent) error {
	id := event.Operation.ID.String()
	if p.writer == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "event", event.Event, "operation_id", id)
		return nil
	}
	return publish(ctx, p.writer, id, event.Event, event)
}

// UserLimitEventPublisher publishes user limit events to Kafka, keyed by user limit id.
type UserLimitEventPublisher struct {
	writer KafkaWriter
}

// NewUserLimitEventPublisher creates a new UserLimitEventPublisher. A nil
// writer disables publishing.
func NewUserLimitEventPublisher(writer KafkaWriter) *UserLimitEventPublisher {
	return &UserLimitEventPublisher{writer: writer}
}

// EmitUserLimitEvent publishes event.
func (p *UserLimitEventPublisher) EmitUserLimitEvent(ctx context.Context, event models.UserLimitEvent) error {
	id := event.UserLimit.ID.String()
	if p.writer == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "event", event.Event, "user_limit_id", id)
		return nil
	}
	return publish(ctx, p.writer, id, event.Event, event)
}

func publish(ctx context.Context, writer KafkaWriter, key, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorw("Failed to marshal event for Kafka", "key", key, "event", name, "error", err)
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(name)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish event to Kafka", "key", key, "event", name, "error", err)
		return err
	}

	logger.Log.Infow("Event published to Kafka", "key", key, "event", name)
	return nil
}
