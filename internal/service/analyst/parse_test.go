package analyst

import (
	"reflect"
	"testing"

	"ChartMarks/internal/domain/models"
)

func TestParseAnalysisFenced(t *testing.T) {
	content := "Here you go:\n```json\n" + `{
  "supports": [95000, 93500, -1],
  "resistances": [99000],
  "overlays": [
    {"type": "trendline", "label": "rising", "points": [[0, 100], [10, 120]]},
    {"type": "channel", "upper": [[0, 130], [20, 140]], "lower": [[0, 110], [20, 120]], "color": "#0af"},
    {},
    {"type": "", "color": "#fff"}
  ],
  "confidence": 0.7,
  "notes": "range bound"
}` + "\n```"

	got, err := ParseAnalysis(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(got.Levels.Supports, []float64{95000, 93500}) {
		t.Fatalf("unexpected supports %v", got.Levels.Supports)
	}
	if !reflect.DeepEqual(got.Levels.Resistances, []float64{99000}) {
		t.Fatalf("unexpected resistances %v", got.Levels.Resistances)
	}
	if len(got.Overlays.Overlays) != 2 {
		t.Fatalf("expected untyped overlays dropped, got %d", len(got.Overlays.Overlays))
	}
	tl := got.Overlays.Overlays[0]
	if tl.Kind != models.OverlayTrendline || len(tl.Points) != 2 || tl.Points[1].Y != 120 {
		t.Fatalf("unexpected trendline %+v", tl)
	}
	ch := got.Overlays.Overlays[1]
	if ch.Kind != models.OverlayChannel || ch.Extra["color"] != "#0af" {
		t.Fatalf("unexpected channel %+v", ch)
	}
	if got.Levels.Meta["confidence"] != 0.7 || got.Levels.Meta["notes"] != "range bound" {
		t.Fatalf("unexpected meta %v", got.Levels.Meta)
	}

	got.Levels.Meta["x"] = 1
	if _, ok := got.Overlays.Meta["x"]; ok {
		t.Fatalf("levels and overlays must not share metadata")
	}
}

func TestParseAnalysisEmptyLists(t *testing.T) {
	got, err := ParseAnalysis(`{"supports": []}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Levels.Supports == nil || got.Levels.Resistances == nil || got.Overlays.Overlays == nil {
		t.Fatalf("lists should be empty, not nil: %+v", got)
	}
}

func TestParseAnalysisRejects(t *testing.T) {
	for _, content := range []string{"", "no json here", "{not json}", "} {"} {
		if _, err := ParseAnalysis(content); err == nil {
			t.Fatalf("%q: expected error", content)
		}
	}
}
