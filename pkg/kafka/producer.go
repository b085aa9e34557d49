package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Header is a Kafka record header.
type Header = kafka.Header

// Message is one record to publish.
type Message struct {
	Key     []byte
	Value   []byte
	Headers []Header
}

// Producer wraps a kafka-go writer. Records are balanced by key so every
// symbol keeps its order within one partition.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "snappy",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	initMetrics()
	return &Producer{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}}, nil
}

// Publish writes messages to topic.
func (p *Producer) Publish(ctx context.Context, topic string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	records := make([]kafka.Message, len(msgs))
	size := 0
	for i, m := range msgs {
		records[i] = kafka.Message{
			Topic:   topic,
			Key:     m.Key,
			Value:   m.Value,
			Headers: m.Headers,
			Time:    now,
		}
		size += len(m.Value)
	}

	err := p.writer.WriteMessages(ctx, records...)
	observePublish(topic, size, len(msgs), time.Since(now), err)
	if err != nil {
		return fmt.Errorf("write %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}
