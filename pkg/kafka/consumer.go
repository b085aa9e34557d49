package kafka

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ChartMarks/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const lastOffset = kafka.LastOffset

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type partitionKey struct {
	topic     string
	partition int
}

// Consumer reads registered topics in a consumer group and hands records to
// a worker pool. Records of one partition are handled one at a time, retried
// with jittered backoff, and dead-lettered when a DLQ topic is configured.
type Consumer struct {
	cfg      *ConsumerConfig
	logger   *logger.Logger
	hook     ConsumerHook
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	dlq      *kafka.Writer

	msgs     chan kafka.Message
	ctx      context.Context
	cancel   context.CancelFunc
	readWG   sync.WaitGroup
	workWG   sync.WaitGroup
	stopOnce sync.Once

	lockMu    sync.Mutex
	partLocks map[partitionKey]*sync.Mutex
}

// NewConsumer creates a consumer. Handlers must be registered before Start.
func NewConsumer(lgr *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "chartmarks",
		StartOffset: kafka.FirstOffset,
		Workers:     1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	initMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:       cfg,
		logger:    lgr.With(logger.String("component", "kafka_consumer")),
		hook:      NoopHook{},
		handlers:  make(map[string]MessageHandler),
		readers:   make(map[string]*kafka.Reader),
		msgs:      make(chan kafka.Message, cfg.BufferSize),
		ctx:       ctx,
		cancel:    cancel,
		partLocks: make(map[partitionKey]*sync.Mutex),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.Hash{}}
	}
	return c, nil
}

// WithHook sets the lifecycle hook.
func (c *Consumer) WithHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler routes a topic to handler.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.logger.Warn("handler already registered", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start launches one reader per topic and the worker pool.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			StartOffset: c.cfg.StartOffset,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
		})
	}

	for i := 0; i < c.cfg.Workers; i++ {
		c.workWG.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.readWG.Add(1)
		go c.read(topic, reader)
	}

	c.logger.Info("kafka consumer started",
		logger.Int("topics", len(c.readers)),
		logger.Int("workers", c.cfg.Workers),
		logger.String("group", c.cfg.GroupID))
	return nil
}

// Stop stops reading, drains buffered records and closes readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		c.cancel()
		c.readWG.Wait()
		close(c.msgs)

		done := make(chan struct{})
		go func() {
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer workers: %w", ctx.Err())
		case <-done:
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.logger.Warn("close reader", logger.String("topic", topic), logger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.logger.Warn("close dlq writer", logger.Error(err))
			}
		}
		c.logger.Info("kafka consumer stopped")
	})
	return stopErr
}

func (c *Consumer) read(topic string, reader *kafka.Reader) {
	defer c.readWG.Done()

	for {
		km, err := reader.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message", logger.String("topic", topic), logger.Error(err))
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case c.msgs <- km:
			consumerBacklog.WithLabelValues(topic).Set(float64(len(c.msgs)))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workWG.Done()
	for km := range c.msgs {
		c.handle(km)
	}
}

func (c *Consumer) handle(km kafka.Message) {
	handler, ok := c.handlers[km.Topic]
	if !ok {
		return
	}

	lock := c.partitionLock(km.Topic, km.Partition)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	attempts, err := c.process(handler, km)
	result := "ok"
	if err != nil {
		result = "error"
		c.logger.Error("message handling failed",
			logger.String("topic", km.Topic),
			logger.Int("partition", km.Partition),
			logger.Int64("offset", km.Offset),
			logger.Int("attempts", attempts),
			logger.Error(err))
		c.deadLetter(km)
	}
	observeHandle(km.Topic, result, time.Since(start))

	// a dead-lettered record is committed so it cannot block the partition
	if err == nil || c.dlq != nil {
		c.commit(km)
	}
}

// process runs the hook and handler, retrying failures with backoff.
func (c *Consumer) process(handler MessageHandler, km kafka.Message) (int, error) {
	var err error
	attempts := 0
	for {
		attempts++
		err = c.invoke(handler, km)
		if err == nil || attempts > c.cfg.RetryMax {
			return attempts, err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.ctx.Done():
			return attempts, err
		}
	}
}

func (c *Consumer) invoke(handler MessageHandler, km kafka.Message) (err error) {
	ctx, data, err := c.hook.BeforeHandle(context.Background(), km)
	if err != nil {
		c.hook.AfterHandle(ctx, km, err)
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		c.hook.AfterHandle(ctx, km, err)
	}()
	return handler.Handle(ctx, data)
}

func (c *Consumer) deadLetter(km kafka.Message) {
	if c.dlq == nil {
		return
	}
	headers := append([]kafka.Header{{Key: "source_topic", Value: []byte(km.Topic)}}, km.Headers...)
	err := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Key:     km.Key,
		Value:   km.Value,
		Headers: headers,
		Time:    time.Now(),
	})
	if err != nil {
		c.logger.Error("write dlq", logger.String("topic", c.cfg.DLQTopic), logger.Error(err))
	}
}

func (c *Consumer) commit(km kafka.Message) {
	reader := c.readers[km.Topic]
	if reader == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.logger.Error("commit offset", logger.String("topic", km.Topic), logger.Int64("offset", km.Offset), logger.Error(err))
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()

	key := partitionKey{topic: topic, partition: partition}
	l, ok := c.partLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.partLocks[key] = l
	}
	return l
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 31 {
		if d := min << uint(attempt-1); d > 0 && d < max {
			exp = d
		}
	}
	// up to 50% jitter
	return exp - time.Duration(rand.Int63n(int64(exp)/2+1))
}
