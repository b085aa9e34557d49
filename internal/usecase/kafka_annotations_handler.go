package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ChartMarks/internal/domain/models"
	domrepo "ChartMarks/internal/domain/repository"
	"ChartMarks/internal/service/annotations"
	pkgkafka "ChartMarks/pkg/kafka"
	"ChartMarks/pkg/logger"
)

// KafkaAnnotationsHandler mirrors annotation events from the topic into the
// local caches. Events this instance published itself are skipped.
type KafkaAnnotationsHandler struct {
	topic    string
	source   string
	levels   *annotations.LevelsCache
	overlays *annotations.OverlaysCache
	metrics  domrepo.Metrics
	l        *logger.Logger
}

func NewKafkaAnnotationsHandler(
	topic, source string,
	levels *annotations.LevelsCache,
	overlays *annotations.OverlaysCache,
	metrics domrepo.Metrics,
	l *logger.Logger,
) *KafkaAnnotationsHandler {
	return &KafkaAnnotationsHandler{
		topic:    topic,
		source:   source,
		levels:   levels,
		overlays: overlays,
		metrics:  metrics,
		l:        l,
	}
}

func (h *KafkaAnnotationsHandler) Topic() string { return h.topic }

func (h *KafkaAnnotationsHandler) Handle(_ context.Context, b []byte) error {
	var ev models.AnnotationEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode annotation event: %w", err)
	}
	if ev.Source != "" && ev.Source == h.source {
		return nil
	}
	if !ev.ProducedAt.IsZero() {
		h.metrics.RecordLatency("annotation_e2e_seconds", time.Since(ev.ProducedAt).Seconds())
	}

	switch ev.Kind {
	case models.EventLevels:
		h.levels.Set(ev.Symbol, ev.Supports, ev.Resistances, ev.Meta)
	case models.EventOverlays:
		h.overlays.Set(ev.Symbol, ev.Overlays, ev.Meta)
	default:
		// retrying cannot fix an unknown kind
		h.metrics.RecordError("consumer_unknown_kind")
		h.l.Warn("dropping annotation event",
			logger.String("id", ev.ID),
			logger.String("kind", string(ev.Kind)))
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaAnnotationsHandler)(nil)
