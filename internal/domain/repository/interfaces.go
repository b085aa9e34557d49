package repository

import (
	"context"

	"ChartMarks/internal/domain/models"
)

// EventPublisher ships annotation events to other processes.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.AnnotationEvent) error
	Close() error
}

// JobEnqueuer schedules background work by message type.
type JobEnqueuer interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Analyst turns recent market data into chart annotations.
type Analyst interface {
	Analyze(ctx context.Context, symbol, tf string, candles []models.Candle) (models.Analysis, error)
}

type Metrics interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordCacheEviction(cache string)
	RecordCacheWrite(cache string)
	RecordWait(cache string, seconds float64, found bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
