package repository

import (
	"context"

	"ChartMarks/internal/domain/models"
)

// FeatureStore provides read-only access to recent candles.
type FeatureStore interface {
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}
