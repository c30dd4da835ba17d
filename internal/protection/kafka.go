package protection

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// Publisher is the receiver-side best-effort publish path: a failed
// publish never blocks or fails the guard decision that produced the
// event, it is only logged by the caller.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (p *Publisher) Publish(ctx context.Context, e *domain.ProtectionEvent) error {
	value, err := encode(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(e.SubscriptionID), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("protection: kafka write: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consumer durably persists every published event, the counterpart to
// Publisher on the sink side.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{reader: kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})}
}

func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, *domain.ProtectionEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("protection: kafka read: %w", err)
		}

		event, err := decode(msg.Value)
		if err != nil {
			return err
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
