package fanout

import (
	"context"
	"errors"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

// NotificationPublisher tells distributor processes that a new signal
// landed for a master, decoupling the gateway's append path from the
// distributor's delivery path (spec §4.4 runs independently of §4.1).
// Grounded on the teacher's SignalPublisher/SignalConsumer pair, keyed
// the same way (by the stream's owning identity) for partition
// affinity.
type NotificationPublisher struct {
	writer *kafka.Writer
}

func NewNotificationPublisher(brokers []string, topic string) *NotificationPublisher {
	return &NotificationPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

// Publish notifies subscribers that s has been appended to the Signal
// Log. The full envelope is encoded into the message, but Consume hands
// only its master ID to the handler; delivery still reads the entry
// back from the log.
func (p *NotificationPublisher) Publish(ctx context.Context, s *domain.Signal) error {
	env := wire.LogEnvelopeFromSignal(s)
	msg := kafka.Message{
		Key:   []byte(s.MasterID),
		Value: wire.EncodeLogEnvelope(env),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("fanout: publish notification: %w", err)
	}
	return nil
}

func (p *NotificationPublisher) Close() error {
	return p.writer.Close()
}

// NotificationConsumer is the distributor side of NotificationPublisher.
type NotificationConsumer struct {
	reader *kafka.Reader
}

func NewNotificationConsumer(brokers []string, groupID, topic string) *NotificationConsumer {
	return &NotificationConsumer{reader: kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})}
}

// Consume reads notifications until ctx is cancelled, calling handler
// with the master a new signal arrived for.
func (c *NotificationConsumer) Consume(ctx context.Context, handler func(context.Context, string) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("fanout: read notification: %w", err)
		}
		env, err := wire.DecodeLogEnvelope(msg.Value)
		if err != nil {
			return fmt.Errorf("fanout: decode notification: %w", err)
		}
		if err := handler(ctx, env.MasterID); err != nil {
			return err
		}
	}
}

func (c *NotificationConsumer) Close() error {
	return c.reader.Close()
}
