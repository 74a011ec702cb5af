package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/feyxa/commerce/internal/service/models/eventlog"
)

const (
	headerEventID   = "event_id"
	headerEventType = "event_type"
)

type processor interface {
	ProcessEvent(ctx context.Context, msg eventlog.Message) (eventlog.Outcome, error)
}

// HTTPDispatcher posts events to the processor function.
type HTTPDispatcher struct {
	processor processor
}

func NewHTTPDispatcher(p processor) *HTTPDispatcher {
	return &HTTPDispatcher{processor: p}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, msg eventlog.Message) error {
	outcome, err := d.processor.ProcessEvent(ctx, msg)
	if err != nil {
		return err
	}
	slog.Debug("Event processed over HTTP", "event_id", msg.EventID, "outcome", outcome)

	return nil
}

type amqpPublisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageID string, body []byte) error
}

// AMQPDispatcher publishes events to a topic exchange, routed by event type.
type AMQPDispatcher struct {
	publisher amqpPublisher
	exchange  string
}

func NewAMQPDispatcher(p amqpPublisher, exchange string) *AMQPDispatcher {
	return &AMQPDispatcher{publisher: p, exchange: exchange}
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, msg eventlog.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := d.publisher.Publish(ctx, d.exchange, msg.EventType, msg.EventID.String(), body); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

type kafkaPublisher interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaDispatcher writes events keyed by aggregate id so one order's events stay ordered.
type KafkaDispatcher struct {
	publisher kafkaPublisher
}

func NewKafkaDispatcher(p kafkaPublisher) *KafkaDispatcher {
	return &KafkaDispatcher{publisher: p}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg eventlog.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		headerEventID:   msg.EventID.String(),
		headerEventType: msg.EventType,
	}
	if err := d.publisher.Publish(ctx, msg.AggregateID.String(), body, headers); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
