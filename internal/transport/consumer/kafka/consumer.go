package kafkaconsumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/feyxa/commerce/internal/dal/kafka"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type service interface {
	Process(ctx context.Context, msg eventlog.Message) (eventlog.Outcome, error)
}

type reader interface {
	Consume(ctx context.Context, handler kafka.MessageHandler) error
	Close() error
}

// Consumer feeds the events topic to the event processor.
type Consumer struct {
	reader  reader
	service service
}

func NewConsumer(reader reader, service service) *Consumer {
	return &Consumer{
		reader:  reader,
		service: service,
	}
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("Kafka consumer started")

	return c.reader.Consume(ctx, c.handle)
}

func (c *Consumer) Shutdown() error {
	return c.reader.Close()
}

// handle leaves the offset uncommitted only when the outcome could not be recorded.
// A malformed message is skipped.
func (c *Consumer) handle(ctx context.Context, key, value []byte) error {
	ctx, span := otel.Tracer("consumer").Start(ctx, "KafkaConsumer.handle")
	defer span.End()

	var event eventlog.Message
	if err := json.Unmarshal(value, &event); err != nil {
		slog.Error("Failed to unmarshal event", "key", string(key), "error", err)

		return nil
	}
	span.SetAttributes(
		attribute.String("event.id", event.EventID.String()),
		attribute.String("event.type", event.EventType),
	)

	outcome, err := c.service.Process(ctx, event)
	if err != nil {
		span.RecordError(err)

		return err
	}

	slog.Debug("Event delivery handled", "event_id", event.EventID, "outcome", outcome)

	return nil
}
