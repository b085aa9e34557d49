package analyst

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"ChartMarks/internal/domain/models"
)

type reply struct {
	Supports    []float64        `json:"supports"`
	Resistances []float64        `json:"resistances"`
	Overlays    []models.Overlay `json:"overlays"`
	Confidence  *float64         `json:"confidence"`
	Notes       string           `json:"notes"`
}

// ParseAnalysis extracts the JSON object from a model reply, tolerating
// code fences and surrounding prose. Non-finite or non-positive prices and
// overlays without a type are dropped. Both returned payloads carry non-nil
// metadata.
func ParseAnalysis(content string) (models.Analysis, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return models.Analysis{}, fmt.Errorf("no json object in reply")
	}

	var r reply
	if err := json.Unmarshal([]byte(content[start:end+1]), &r); err != nil {
		return models.Analysis{}, fmt.Errorf("decode reply: %w", err)
	}

	meta := models.Metadata{"source": "openai"}
	if r.Confidence != nil {
		meta["confidence"] = *r.Confidence
	}
	if r.Notes != "" {
		meta["notes"] = r.Notes
	}

	overlays := make([]models.Overlay, 0, len(r.Overlays))
	for _, o := range r.Overlays {
		if o.Kind == "" {
			continue
		}
		overlays = append(overlays, o)
	}

	return models.Analysis{
		Levels: models.KeyLevels{
			Supports:    validPrices(r.Supports),
			Resistances: validPrices(r.Resistances),
			Meta:        meta,
		},
		Overlays: models.OverlaySet{
			Overlays: overlays,
			Meta:     meta.Clone(),
		},
	}, nil
}

func validPrices(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
