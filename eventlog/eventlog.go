// Package eventlog publishes finished matches to a Kafka topic for downstream consumers.
package eventlog

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/models"
)

const EventMatchFinished = "match_finished"

// Publisher emits match events.
type Publisher interface {
	PublishMatch(ctx context.Context, record *models.MatchRecord) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per match, keyed by room code.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher returns an asynchronous publisher; delivery errors are logged by the writer.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Log.Warnw("kafka delivery failed", "topic", topic, "messages", len(messages), "error", err)
			}
		},
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishMatch(ctx context.Context, record *models.MatchRecord) error {
	msg, err := matchMessage(record)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func matchMessage(record *models.MatchRecord) (kafka.Message, error) {
	value, err := json.Marshal(record)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(record.RoomCode),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(EventMatchFinished)},
			{Key: "match_id", Value: []byte(record.MatchID)},
		},
	}, nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when kafka is disabled.
type Nop struct{}

func (Nop) PublishMatch(context.Context, *models.MatchRecord) error { return nil }
func (Nop) Close() error                                           { return nil }
