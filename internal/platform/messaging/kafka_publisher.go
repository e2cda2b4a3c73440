package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/pantry-sync/internal/config"
	"github.com/rl1809/pantry-sync/internal/core/domain"
)

const (
	batchTimeout = 10 * time.Millisecond
	batchSize    = 100
)

// Producer is the subset of a Kafka writer the publisher needs.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher emits inventory events as JSON keyed by user id, so every
// event of one user lands on the same partition.
type KafkaPublisher struct {
	producer Producer
	logger   *zap.Logger
}

func NewKafkaPublisher(producer Producer, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger}
}

// NewKafkaWriter wraps a segmentio writer with trace propagation.
func NewKafkaWriter(cfg config.Kafka, tp trace.TracerProvider) (Producer, error) {
	base := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		BatchSize:    batchSize,
	}

	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			semconv.MessagingDestinationNameKey.String(cfg.Topic),
			attribute.String("messaging.kafka.client_id", config.ServiceName),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka writer: %w", err)
	}
	return writer, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.producer.WriteMessage(ctx, msg); err != nil {
		return domain.Remote("publish event", err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops events. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
