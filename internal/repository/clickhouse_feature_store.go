package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ChartMarks/internal/domain/models"
	domrepo "ChartMarks/internal/domain/repository"
	pkgch "ChartMarks/pkg/clickhouse"
	"ChartMarks/pkg/logger"
)

// CHFeatureStore reads candles from ClickHouse tables named
// <database>.candles_1s and <database>.candles_1m. 5m bars are folded from
// the 1m table server-side.
type CHFeatureStore struct {
	db       *sql.DB
	database string
	l        *logger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client, database string, l *logger.Logger) *CHFeatureStore {
	return &CHFeatureStore{db: ch.DB(), database: database, l: l}
}

// GetLatestNCandles returns up to n most recent candles in ascending order.
func (s *CHFeatureStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	q, err := latestCandlesQuery(s.database, tf)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error",
			logger.String("symbol", symbol),
			logger.String("tf", string(tf)),
			logger.Error(err))
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	reverseCandles(out)
	s.l.Debug("clickhouse latest_candles ok",
		logger.String("symbol", symbol),
		logger.String("tf", string(tf)),
		logger.Int("rows", len(out)),
		logger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func latestCandlesQuery(database string, tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1s, domrepo.TF1m:
		return fmt.Sprintf(`
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s.candles_%s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?`, database, tf), nil
	case domrepo.TF5m:
		return fmt.Sprintf(`
        SELECT toStartOfFiveMinutes(bucket) AS b, symbol,
               argMin(open, bucket), max(high), min(low), argMax(close, bucket), sum(vol)
        FROM %s.candles_1m
        WHERE symbol = ?
        GROUP BY b, symbol
        ORDER BY b DESC
        LIMIT ?`, database), nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

func reverseCandles(cs []models.Candle) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}
