// Package events publishes analysis events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

// Publisher writes asynchronously; delivery failures are only logged.
type Publisher struct {
	w *kafka.Writer
}

func NewPublisher(brokers []string, topic string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           100 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka delivery failed", zap.String("topic", topic), zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}}
}

// Message keys by cache key so events for one request shape stay ordered.
func Message(ev analysis.Event) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.CacheKey),
		Value: payload,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}, nil
}

// Publish implements analysis.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, ev analysis.Event) error {
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.w.Close()
}
