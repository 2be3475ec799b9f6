package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher emits turn events.
type Publisher interface {
	PublishTurnCompleted(ctx context.Context, e TurnCompleted) error
	Close() error
}

// Noop discards every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishTurnCompleted(context.Context, TurnCompleted) error { return nil }
func (Noop) Close() error { return nil }

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic, keyed by user id.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a synchronous writer for topic. Messages are
// hash-balanced on their key.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

// NewPublisher returns a KafkaPublisher, or Noop when brokers is empty.
func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return NewKafkaPublisher(brokers, topic)
}

// PublishTurnCompleted writes e and waits for the broker acknowledgement.
func (p *KafkaPublisher) PublishTurnCompleted(ctx context.Context, e TurnCompleted) error {
	key, value, err := e.Encode()
	if err != nil {
		return fmt.Errorf("PublishTurnCompleted: %w", err)
	}
	msg := kafka.Message{
		Key:   key,
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeTurnCompleted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("PublishTurnCompleted: writing to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
