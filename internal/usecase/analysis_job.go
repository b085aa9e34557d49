package usecase

import (
	"context"
	"fmt"
	"time"

	"ChartMarks/internal/domain/models"
	domrepo "ChartMarks/internal/domain/repository"
	"ChartMarks/internal/service/annotations"
	"ChartMarks/pkg/logger"
	"ChartMarks/pkg/queue"
)

const defaultAnalysisBars = 240

// AnalysisJob runs the analyst for queued requests and stores the result in
// both caches.
type AnalysisJob struct {
	store     domrepo.FeatureStore
	analyst   domrepo.Analyst
	levels    *annotations.LevelsCache
	overlays  *annotations.OverlaysCache
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	source    string
	bars      int
	l         *logger.Logger
}

func NewAnalysisJob(
	store domrepo.FeatureStore,
	analyst domrepo.Analyst,
	levels *annotations.LevelsCache,
	overlays *annotations.OverlaysCache,
	publisher domrepo.EventPublisher,
	metrics domrepo.Metrics,
	source string,
	l *logger.Logger,
) *AnalysisJob {
	return &AnalysisJob{
		store:     store,
		analyst:   analyst,
		levels:    levels,
		overlays:  overlays,
		publisher: publisher,
		metrics:   metrics,
		source:    source,
		bars:      defaultAnalysisBars,
		l:         l.With(logger.String("job", "analysis")),
	}
}

// WithDefaultBars sets the window used when a request does not name one.
func (j *AnalysisJob) WithDefaultBars(n int) *AnalysisJob {
	if n > 0 {
		j.bars = n
	}
	return j
}

func (j *AnalysisJob) Name() string { return "analysis" }

func (j *AnalysisJob) Type() string { return AnalysisJobType }

func (j *AnalysisJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.AnalysisRequest](payload)
	if err != nil {
		return err
	}
	symbol := models.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		j.l.Warn("dropping analysis request without symbol")
		return nil
	}
	bars := req.Bars
	if bars <= 0 {
		bars = j.bars
	}
	tf := domrepo.ParseTimeframe(req.Timeframe)

	start := time.Now()
	candles, err := j.store.GetLatestNCandles(ctx, symbol, bars, tf)
	if err != nil {
		j.metrics.RecordError("analysis_candles")
		return fmt.Errorf("load candles for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		j.l.Warn("no candles for analysis", logger.String("symbol", symbol), logger.String("tf", string(tf)))
		return nil
	}

	a, err := j.analyst.Analyze(ctx, symbol, string(tf), candles)
	if err != nil {
		j.metrics.RecordError("analysis_model")
		return fmt.Errorf("analyze %s: %w", symbol, err)
	}

	le := j.levels.Set(symbol, a.Levels.Supports, a.Levels.Resistances, a.Levels.Meta)
	oe := j.overlays.Set(symbol, a.Overlays.Overlays, a.Overlays.Meta)
	j.metrics.RecordLatency("analysis_seconds", time.Since(start).Seconds())

	// cache writes stand even if publishing fails
	for _, ev := range []models.AnnotationEvent{
		models.NewLevelsEvent(j.source, symbol, models.KeyLevels{Supports: le.Supports, Resistances: le.Resistances, Meta: le.Meta}),
		models.NewOverlaysEvent(j.source, symbol, models.OverlaySet{Overlays: oe.Overlays, Meta: oe.Meta}),
	} {
		if err := j.publisher.Publish(ctx, ev); err != nil {
			j.metrics.RecordError("analysis_publish")
			j.l.Warn("publish analysis event failed",
				logger.String("symbol", symbol),
				logger.String("kind", string(ev.Kind)),
				logger.Error(err))
		}
	}

	j.l.Info("analysis stored",
		logger.String("symbol", symbol),
		logger.String("tf", string(tf)),
		logger.Int("bars", len(candles)),
		logger.Int("overlays", len(oe.Overlays)))
	return nil
}

var _ queue.Job = (*AnalysisJob)(nil)
