package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ChartMarks/internal/domain/models"
	pkgkafka "ChartMarks/pkg/kafka"
)

// HeaderSource carries the publishing instance id on every record.
const HeaderSource = "source"

// KafkaEventPublisher implements EventPublisher on a Kafka topic. Records
// are keyed by symbol so events for one symbol stay ordered.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev models.AnnotationEvent) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, p.topic, msg)
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

func encodeEvent(ev models.AnnotationEvent) (pkgkafka.Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return pkgkafka.Message{}, fmt.Errorf("marshal %s event: %w", ev.Kind, err)
	}
	return pkgkafka.Message{
		Key:   []byte(ev.Symbol),
		Value: b,
		Headers: []pkgkafka.Header{
			{Key: HeaderSource, Value: []byte(ev.Source)},
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	}, nil
}

// NopEventPublisher drops events; used when Kafka is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, models.AnnotationEvent) error { return nil }
func (NopEventPublisher) Close() error                                          { return nil }
