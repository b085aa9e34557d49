package annotations

import (
	"time"

	"ChartMarks/internal/domain/models"
	"ChartMarks/pkg/cache"
)

const overlaysStore = "overlays"

// OverlaysCache holds the latest AI-derived overlay drawings per symbol.
// Renderers read it once per chart, so there is no waiting read.
type OverlaysCache struct {
	store *cache.Store[models.OverlaySet]
	cfg   *Config
}

// NewOverlaysCache creates an empty overlays cache.
func NewOverlaysCache(opts ...Option) *OverlaysCache {
	cfg := newConfig(DefaultOverlaysMaxAge, opts)
	return &OverlaysCache{
		store: cache.NewStore[models.OverlaySet](storeOptions(overlaysStore, cfg)...),
		cfg:   cfg,
	}
}

// MaxAge returns the default max age.
func (c *OverlaysCache) MaxAge() time.Duration { return c.cfg.MaxAge }

// Set stores overlays for symbol, replacing whatever was there.
func (c *OverlaysCache) Set(symbol string, overlays []models.Overlay, meta models.Metadata) models.OverlaysEntry {
	key := models.NormalizeSymbol(symbol)
	payload := models.OverlaySet{Overlays: overlays, Meta: meta}.Clone()
	e := c.store.Set(key, payload)
	return models.NewOverlaysEntry(key, e.Value, e.Timestamp)
}

// Get returns overlays for symbol no older than the default max age.
func (c *OverlaysCache) Get(symbol string) (models.OverlaysEntry, bool) {
	return c.GetWithin(symbol, c.cfg.MaxAge)
}

// GetWithin returns overlays for symbol no older than maxAge.
func (c *OverlaysCache) GetWithin(symbol string, maxAge time.Duration) (models.OverlaysEntry, bool) {
	key := models.NormalizeSymbol(symbol)
	e, ok := c.store.Get(key, maxAge)
	if !ok {
		return models.OverlaysEntry{}, false
	}
	return models.NewOverlaysEntry(key, e.Value, e.Timestamp), true
}

// Len returns the number of stored symbols, stale ones included.
func (c *OverlaysCache) Len() int { return c.store.Len() }

// Subscribe streams every subsequent write.
func (c *OverlaysCache) Subscribe(buffer int) (<-chan cache.Update[models.OverlaySet], func()) {
	return c.store.Subscribe(buffer)
}
