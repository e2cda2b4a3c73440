package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/pantry-sync/internal/config"
	"github.com/rl1809/pantry-sync/internal/core/domain"
)

type fakeProducer struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeProducer) WriteMessage(_ context.Context, msg kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := &fakeProducer{}
	publisher := NewKafkaPublisher(producer, zap.NewNop())

	event := domain.Event{
		ID:         "evt-1",
		Type:       domain.EventItemAdded,
		UserID:     "user-1",
		Item:       "eggs",
		Quantity:   3,
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, publisher.Publish(context.Background(), event))

	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, "user-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, string(domain.EventItemAdded), string(msg.Headers[0].Value))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)

	require.NoError(t, publisher.Close())
	assert.True(t, producer.closed)
}

func TestKafkaPublisher_WriteFailure(t *testing.T) {
	publisher := NewKafkaPublisher(&fakeProducer{err: errors.New("broker down")}, zap.NewNop())

	err := publisher.Publish(context.Background(), domain.Event{ID: "evt-1", UserID: "user-1"})
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestNewKafkaWriter(t *testing.T) {
	writer, err := NewKafkaWriter(config.Kafka{Brokers: []string{"localhost:9092"}, Topic: "pantry-events"}, nil)
	require.NoError(t, err)
	assert.NoError(t, writer.Close())
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.Publish(context.Background(), domain.Event{}))
	assert.NoError(t, p.Close())
}
