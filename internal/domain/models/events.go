package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind selects which cache an AnnotationEvent targets.
type EventKind string

const (
	EventLevels   EventKind = "levels"
	EventOverlays EventKind = "overlays"
)

// AnnotationEvent is the transport envelope for annotations produced by
// another process. Only the fields matching Kind are meaningful.
type AnnotationEvent struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	Symbol      string    `json:"symbol"`
	Supports    []float64 `json:"supports,omitempty"`
	Resistances []float64 `json:"resistances,omitempty"`
	Overlays    []Overlay `json:"overlays,omitempty"`
	Meta        Metadata  `json:"meta,omitempty"`
	Source      string    `json:"source"`
	ProducedAt  time.Time `json:"produced_at"`
}

// NewLevelsEvent wraps a levels payload for publishing.
func NewLevelsEvent(source, symbol string, k KeyLevels) AnnotationEvent {
	return AnnotationEvent{
		ID:          uuid.New().String(),
		Kind:        EventLevels,
		Symbol:      NormalizeSymbol(symbol),
		Supports:    k.Supports,
		Resistances: k.Resistances,
		Meta:        k.Meta,
		Source:      source,
		ProducedAt:  time.Now().UTC(),
	}
}

// NewOverlaysEvent wraps an overlays payload for publishing.
func NewOverlaysEvent(source, symbol string, s OverlaySet) AnnotationEvent {
	return AnnotationEvent{
		ID:         uuid.New().String(),
		Kind:       EventOverlays,
		Symbol:     NormalizeSymbol(symbol),
		Overlays:   s.Overlays,
		Meta:       s.Meta,
		Source:     source,
		ProducedAt: time.Now().UTC(),
	}
}
