package annotations

import (
	"context"
	"time"

	"ChartMarks/internal/domain/models"
	"ChartMarks/pkg/cache"
)

const levelsStore = "levels"

// LevelsCache holds the latest AI-derived support/resistance levels per symbol.
type LevelsCache struct {
	store *cache.Store[models.KeyLevels]
	cfg   *Config
}

// NewLevelsCache creates an empty levels cache.
func NewLevelsCache(opts ...Option) *LevelsCache {
	cfg := newConfig(DefaultLevelsMaxAge, opts)
	return &LevelsCache{
		store: cache.NewStore[models.KeyLevels](storeOptions(levelsStore, cfg)...),
		cfg:   cfg,
	}
}

// MaxAge returns the default max age.
func (c *LevelsCache) MaxAge() time.Duration { return c.cfg.MaxAge }

// Set stores levels for symbol, replacing whatever was there.
func (c *LevelsCache) Set(symbol string, supports, resistances []float64, meta models.Metadata) models.LevelsEntry {
	key := models.NormalizeSymbol(symbol)
	payload := models.KeyLevels{Supports: supports, Resistances: resistances, Meta: meta}.Clone()
	e := c.store.Set(key, payload)
	return models.NewLevelsEntry(key, e.Value, e.Timestamp)
}

// Get returns levels for symbol no older than the default max age.
func (c *LevelsCache) Get(symbol string) (models.LevelsEntry, bool) {
	return c.GetWithin(symbol, c.cfg.MaxAge)
}

// GetWithin returns levels for symbol no older than maxAge.
func (c *LevelsCache) GetWithin(symbol string, maxAge time.Duration) (models.LevelsEntry, bool) {
	key := models.NormalizeSymbol(symbol)
	e, ok := c.store.Get(key, maxAge)
	if !ok {
		return models.LevelsEntry{}, false
	}
	return models.NewLevelsEntry(key, e.Value, e.Timestamp), true
}

// Wait returns levels for symbol as soon as fresh ones exist, or reports a
// miss once timeout elapses or ctx is done.
func (c *LevelsCache) Wait(ctx context.Context, symbol string, timeout, poll time.Duration) (models.LevelsEntry, bool) {
	key := models.NormalizeSymbol(symbol)
	start := time.Now()

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	e, ok := c.store.Wait(wctx, key, c.cfg.MaxAge, poll)

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordWait(levelsStore, time.Since(start).Seconds(), ok)
	}
	if !ok {
		return models.LevelsEntry{}, false
	}
	return models.NewLevelsEntry(key, e.Value, e.Timestamp), true
}

// WaitDefaults returns the configured timeout and poll interval.
func (c *LevelsCache) WaitDefaults() (timeout, poll time.Duration) {
	return c.cfg.WaitTimeout, c.cfg.PollInterval
}

// Len returns the number of stored symbols, stale ones included.
func (c *LevelsCache) Len() int { return c.store.Len() }

// Subscribe streams every subsequent write.
func (c *LevelsCache) Subscribe(buffer int) (<-chan cache.Update[models.KeyLevels], func()) {
	return c.store.Subscribe(buffer)
}

func storeOptions(name string, cfg *Config) []cache.Option {
	opts := []cache.Option{cache.WithName(name), cache.WithClock(cfg.Clock)}
	if cfg.Metrics != nil {
		opts = append(opts, cache.WithRecorder(cfg.Metrics))
	}
	return opts
}
