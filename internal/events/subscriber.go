package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageReader is the part of *kafka.Reader the subscriber uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSubscriber tails turn events from a topic.
type KafkaSubscriber struct {
	reader messageReader
	log    zerolog.Logger
}

// NewKafkaSubscriber creates a reader on topic. An empty groupID reads the
// single partition 0 from the latest offset without committing.
func NewKafkaSubscriber(brokers []string, topic, groupID string, log zerolog.Logger) *KafkaSubscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if groupID == "" {
		cfg.StartOffset = kafka.LastOffset
	}
	return &KafkaSubscriber{reader: kafka.NewReader(cfg), log: log}
}

// Run calls fn for every decoded event until ctx is cancelled or fn fails.
// Messages that do not decode are logged and skipped.
func (s *KafkaSubscriber) Run(ctx context.Context, fn func(TurnCompleted) error) error {
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("KafkaSubscriber.Run: reading: %w", err)
		}
		e, err := DecodeTurnCompleted(msg.Value)
		if err != nil {
			s.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping undecodable event")
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// Close closes the reader.
func (s *KafkaSubscriber) Close() error {
	return s.reader.Close()
}
