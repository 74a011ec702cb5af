package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

// Producer writes keyed messages to one topic.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{writer: writer}
}

// MustNewProducer uses kafka.brokers and kafka.topic.
func MustNewProducer() *Producer {
	brokers := viper.GetStringSlice("kafka.brokers")
	topic := viper.GetString("kafka.topic")
	if len(brokers) == 0 || topic == "" {
		panic("kafka.brokers and kafka.topic must be set")
	}

	return NewProducer(brokers, topic)
}

// Publish writes value under key; equal keys land on the same partition.
func (p *Producer) Publish(ctx context.Context, key string, value []byte, headers map[string]string) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// MessageHandler returns an error to leave the offset uncommitted.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic as part of a consumer group and commits offsets after handling.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &Consumer{reader: reader}
}

// MustNewConsumer uses kafka.brokers, kafka.topic and kafka.group_id.
func MustNewConsumer() *Consumer {
	brokers := viper.GetStringSlice("kafka.brokers")
	topic := viper.GetString("kafka.topic")
	groupID := viper.GetString("kafka.group_id")
	if len(brokers) == 0 || topic == "" || groupID == "" {
		panic("kafka.brokers, kafka.topic and kafka.group_id must be set")
	}

	return NewConsumer(brokers, topic, groupID)
}

// Consume blocks until ctx is done. Offsets are committed only after the handler returns nil.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			slog.Error("Failed to fetch kafka message", "error", err)

			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			slog.Error("Failed to handle kafka message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)

			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			slog.Error("Failed to commit kafka offset", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
