package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards dispatched events to Kafka, keyed by request id so
// one request's events stay ordered within a partition.
type KafkaPublisher struct {
	writer       messageWriter
	defaultTopic string
	topicByEvent map[EventType]string
}

// NewKafkaPublisher builds an asynchronous writer so a slow broker never holds
// up the transition that raised the event. Delivery failures are logged.
func NewKafkaPublisher(brokers []string, defaultTopic string, topicByEvent map[EventType]string, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				logger.Warn("kafka delivery failed",
					zap.String("topic", m.Topic),
					zap.ByteString("request_id", m.Key),
					zap.Error(err))
			}
		},
	}, defaultTopic, topicByEvent), nil
}

func newKafkaPublisher(writer messageWriter, defaultTopic string, topicByEvent map[EventType]string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, defaultTopic: defaultTopic, topicByEvent: topicByEvent}
}

// Register subscribes the publisher to every event type.
func (p *KafkaPublisher) Register(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes() {
		dispatcher.Subscribe(eventType, p.Handle)
	}
}

// Handle is an EventHandler that writes one Kafka message per event.
func (p *KafkaPublisher) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topicFor(event.Type),
		Key:   []byte(event.RequestID),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) topicFor(eventType EventType) string {
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		return mapped
	}
	if p.defaultTopic != "" {
		return p.defaultTopic
	}
	return string(eventType)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
