package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards session lifecycle events to a Kafka topic.
type KafkaPublisher struct {
	w     MessageWriter
	topic string
	log   *zap.Logger
}

// NewKafkaPublisher builds an async writer; delivery failures are reported
// through the completion callback and logged.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("component", "kafka.publisher"), zap.String("topic", topic))
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("session events not delivered", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaPublisher{w: w, topic: topic, log: log}
}

// NewKafkaPublisherWithWriter wires a caller supplied writer.
func NewKafkaPublisherWithWriter(w MessageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		w:     w,
		topic: topic,
		log:   logger.With(zap.String("component", "kafka.publisher"), zap.String("topic", topic)),
	}
}

// Register subscribes the publisher to every session event.
func (p *KafkaPublisher) Register(d Dispatcher) {
	for _, t := range SessionEventTypes {
		d.Subscribe(t, p.Handle)
	}
}

// Handle encodes the event as JSON keyed by identity.
func (p *KafkaPublisher) Handle(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.log.Error("event marshal failed", zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Identity),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Error("kafka write failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	p.log.Debug("event published", zap.String("event_type", string(event.Type)), zap.Int("value_len", len(value)))
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error { return p.w.Close() }
