package amqpconsumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/feyxa/commerce/internal/dal/rabbitmq"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConsumerTag = "commerce-svc"
	maxInFlight        = 50
	shutdownTimeout    = 10 * time.Second
)

// service represents the service layer interface.
type service interface {
	Process(ctx context.Context, msg eventlog.Message) (eventlog.Outcome, error)
}

type broker interface {
	DeclareTopology(exchange string) error
	DeclareQueue(cfg rabbitmq.DeclareQueueConfig) (amqp.Queue, error)
	BindQueue(queue, pattern, exchange string) error
	Consume(cfg rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error)
	Cancel(consumerTag string) error
}

// Consumer feeds event deliveries from RabbitMQ to the event processor.
type Consumer struct {
	client   broker
	service  service
	queue    amqp.Queue
	tag      string
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewConsumer declares the events exchange and a durable queue bound to every event type.
func NewConsumer(client broker, service service) *Consumer {
	exchange := viper.GetString("rabbitmq.exchange")
	queueName := viper.GetString("rabbitmq.queue")
	if exchange == "" || queueName == "" {
		panic("rabbitmq.exchange and rabbitmq.queue must be set in config")
	}

	if err := client.DeclareTopology(exchange); err != nil {
		panic(err)
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queueName,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	if err := client.BindQueue(queue.Name, "#", exchange); err != nil {
		panic(err)
	}

	tag := viper.GetString("rabbitmq.consumer_tag")
	if tag == "" {
		tag = defaultConsumerTag
	}

	return &Consumer{
		client:  client,
		service: service,
		queue:   queue,
		tag:     tag,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run consumes until Shutdown is called, ctx is done or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: c.tag,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", c.tag)

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(maxInFlight)

	defer close(c.done)

loop:
	for {
		select {
		case <-c.stop:
			slog.Info("Stopping consumer")

			break loop
		case <-ctx.Done():
			slog.Info("Consumer context done")

			break loop
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("Message channel closed")

				break loop
			}

			g.Go(func() error {
				c.processMessage(gctx, msg)

				return nil
			})
		}
	}

	return g.Wait()
}

// processMessage acks once the outcome is recorded on the event row. Only a storage failure
// requeues the delivery; a malformed body is dropped.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	var event eventlog.Message
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		slog.Error("Failed to unmarshal event", "delivery_tag", msg.DeliveryTag, "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}
	span.SetAttributes(
		attribute.String("event.id", event.EventID.String()),
		attribute.String("event.type", event.EventType),
	)

	outcome, err := c.service.Process(ctx, event)
	if err != nil {
		span.RecordError(err)
		slog.Error("Failed to process event", "event_id", event.EventID, "error", err)
		if err := msg.Nack(false, true); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "event_id", event.EventID, "error", err)

		return
	}

	slog.Debug("Event delivery handled", "event_id", event.EventID, "outcome", outcome)
}

// Shutdown cancels the subscription and waits for in-flight deliveries.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")

	var err error
	c.stopOnce.Do(func() {
		close(c.stop)
		err = c.client.Cancel(c.tag)
	})

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(shutdownTimeout):
		slog.Warn("Consumer shutdown timeout")
	}

	return err
}
