package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChartMarks/internal/domain/models"
	domrepo "ChartMarks/internal/domain/repository"
	"ChartMarks/internal/service/annotations"
	"ChartMarks/internal/service/ratelimit"
	"ChartMarks/pkg/logger"
	"ChartMarks/pkg/util"
)

// AnalysisJobType routes analysis requests through the job queue.
const AnalysisJobType = "analysis.request"

var (
	ErrQueueDisabled = errors.New("analysis queue is disabled")
	ErrRateLimited   = errors.New("analysis recently requested for symbol")
	ErrEmptySymbol   = errors.New("symbol is empty after normalization")
)

// AnnotationsUseCase is the entry point for reading and writing chart
// annotations. Local writes are also published so peers can mirror them.
type AnnotationsUseCase struct {
	levels    *annotations.LevelsCache
	overlays  *annotations.OverlaysCache
	publisher domrepo.EventPublisher
	jobs      domrepo.JobEnqueuer
	limiter   *ratelimit.Limiter
	source    string
	l         *logger.Logger
}

// NewAnnotationsUseCase wires the use case. jobs and limiter may be nil.
func NewAnnotationsUseCase(
	levels *annotations.LevelsCache,
	overlays *annotations.OverlaysCache,
	publisher domrepo.EventPublisher,
	jobs domrepo.JobEnqueuer,
	limiter *ratelimit.Limiter,
	source string,
	l *logger.Logger,
) *AnnotationsUseCase {
	return &AnnotationsUseCase{
		levels:    levels,
		overlays:  overlays,
		publisher: publisher,
		jobs:      jobs,
		limiter:   limiter,
		source:    source,
		l:         l,
	}
}

// LookupParams selects an annotation. A nil MaxAge means the cache default.
type LookupParams struct {
	Symbol string
	MaxAge *time.Duration
}

// WaitParams selects levels to wait for. Nil durations mean the cache defaults.
type WaitParams struct {
	Symbol  string
	Timeout *time.Duration
	Poll    *time.Duration
	// MaxTimeout caps the effective timeout, defaults included; zero means no cap.
	MaxTimeout time.Duration
}

func (uc *AnnotationsUseCase) PutLevels(ctx context.Context, symbol string, supports, resistances []float64, meta models.Metadata) models.LevelsEntry {
	e := uc.levels.Set(symbol, supports, resistances, meta)
	uc.publish(ctx, models.NewLevelsEvent(uc.source, e.Symbol, models.KeyLevels{
		Supports:    e.Supports,
		Resistances: e.Resistances,
		Meta:        e.Meta,
	}))
	return e
}

func (uc *AnnotationsUseCase) GetLevels(p LookupParams) (models.LevelsEntry, bool) {
	if p.MaxAge == nil {
		return uc.levels.Get(p.Symbol)
	}
	return uc.levels.GetWithin(p.Symbol, *p.MaxAge)
}

func (uc *AnnotationsUseCase) WaitLevels(ctx context.Context, p WaitParams) (models.LevelsEntry, bool) {
	cfgTimeout, cfgPoll := uc.levels.WaitDefaults()
	timeout, poll := cfgTimeout, cfgPoll
	if p.Timeout != nil {
		timeout = *p.Timeout
	}
	if p.Poll != nil {
		poll = *p.Poll
	}
	if p.MaxTimeout > 0 {
		timeout = util.ClampDuration(timeout, 0, p.MaxTimeout)
	}
	return uc.levels.Wait(ctx, p.Symbol, timeout, poll)
}

func (uc *AnnotationsUseCase) PutOverlays(ctx context.Context, symbol string, overlays []models.Overlay, meta models.Metadata) models.OverlaysEntry {
	e := uc.overlays.Set(symbol, overlays, meta)
	uc.publish(ctx, models.NewOverlaysEvent(uc.source, e.Symbol, models.OverlaySet{
		Overlays: e.Overlays,
		Meta:     e.Meta,
	}))
	return e
}

func (uc *AnnotationsUseCase) GetOverlays(p LookupParams) (models.OverlaysEntry, bool) {
	if p.MaxAge == nil {
		return uc.overlays.Get(p.Symbol)
	}
	return uc.overlays.GetWithin(p.Symbol, *p.MaxAge)
}

// RequestAnalysis enqueues an analyst run for a symbol.
func (uc *AnnotationsUseCase) RequestAnalysis(ctx context.Context, req models.AnalysisRequest) (models.AnalysisRequest, error) {
	if uc.jobs == nil {
		return req, ErrQueueDisabled
	}
	req.Symbol = models.NormalizeSymbol(req.Symbol)
	if req.Symbol == "" {
		return req, ErrEmptySymbol
	}
	req.Timeframe = string(domrepo.ParseTimeframe(req.Timeframe))
	if uc.limiter != nil && !uc.limiter.Allow(req.Symbol) {
		return req, ErrRateLimited
	}
	if err := uc.jobs.PublishMessage(ctx, AnalysisJobType, req); err != nil {
		return req, fmt.Errorf("enqueue analysis: %w", err)
	}
	return req, nil
}

// CacheStats describes one cache for health checks.
type CacheStats struct {
	Entries       int     `json:"entries"`
	MaxAgeSeconds float64 `json:"max_age_seconds"`
}

// Stats reports occupancy and default max age per cache.
func (uc *AnnotationsUseCase) Stats() map[string]CacheStats {
	return map[string]CacheStats{
		"levels":   {Entries: uc.levels.Len(), MaxAgeSeconds: uc.levels.MaxAge().Seconds()},
		"overlays": {Entries: uc.overlays.Len(), MaxAgeSeconds: uc.overlays.MaxAge().Seconds()},
	}
}

func (uc *AnnotationsUseCase) publish(ctx context.Context, ev models.AnnotationEvent) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, ev); err != nil {
		uc.l.Warn("publish annotation event failed",
			logger.String("kind", string(ev.Kind)),
			logger.String("symbol", ev.Symbol),
			logger.Error(err))
	}
}
