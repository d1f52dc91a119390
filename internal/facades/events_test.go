package facades

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationEventPublisher_EmitOperationEvent(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	writer := NewMockKafkaWriter(ctrl)
	publisher := NewOperationEventPublisher(writer)

	event := models.OperationEvent{
		Event: models.OperationEventAccepted,
		Operation: models.Operation{
			ID:    uuid.New(),
			State: models.OperationStateAccepted,
			Value: decimal.RequireFromString("290.50"),
		},
		OccurredAt: time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
	}

	writer.EXPECT().WriteMessages(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, msgs ...kafka.Message) error {
			require.Len(t, msgs, 1)
			assert.Equal(t, event.Operation.ID.String(), string(msgs[0].Key))
			assert.Equal(t, "event", msgs[0].Headers[0].Key)
			assert.Equal(t, models.OperationEventAccepted, string(msgs[0].Headers[0].Value))

			var decoded models.OperationEvent
			require.NoError(t, json.Unmarshal(msgs[0].Value, &decoded))
			assert.Equal(t, event.Operation.ID, decoded.Operation.ID)
			assert.True(t, decoded.Operation.Value.Equal(event.Operation.Value))
			return nil
		})
	assert.NoError(t, publisher.EmitOperationEvent(ctx, event))

	writer.EXPECT().WriteMessages(ctx, gomock.Any()).Return(errors.New("kafka error"))
	assert.EqualError(t, publisher.EmitOperationEvent(ctx, event), "kafka error")

	// A nil writer must not panic
	assert.NoError(t, NewOperationEventPublisher(nil).EmitOperationEvent(ctx, event))
}

func TestUserLimitEventPublisher_EmitUserLimitEvent(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	writer := NewMockKafkaWriter(ctrl)
	publisher := NewUserLimitEventPublisher(writer)

	event := models.UserLimitEvent{
		Event:     models.UserLimitEventCreated,
		UserLimit: models.UserLimit{ID: uuid.New(), UserID: uuid.New()},
	}

	writer.EXPECT().WriteMessages(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, msgs ...kafka.Message) error {
			require.Len(t, msgs, 1)
			assert.Equal(t, event.UserLimit.ID.String(), string(msgs[0].Key))
			return nil
		})
	assert.NoError(t, publisher.EmitUserLimitEvent(ctx, event))

	writer.EXPECT().WriteMessages(ctx, gomock.Any()).Return(errors.New("kafka error"))
	assert.Error(t, publisher.EmitUserLimitEvent(ctx, event))

	assert.NoError(t, NewUserLimitEventPublisher(nil).EmitUserLimitEvent(ctx, event))
}
