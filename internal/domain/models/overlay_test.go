package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestOverlayDecodeTrendline(t *testing.T) {
	var o Overlay
	if err := json.Unmarshal([]byte(`{"type":"trendline","points":[[0,100],[10,120]]}`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Overlay{Kind: OverlayTrendline, Points: []Point{{0, 100}, {10, 120}}}
	if !reflect.DeepEqual(o, want) {
		t.Fatalf("unexpected overlay %#v", o)
	}
	if !o.Kind.Known() {
		t.Fatalf("trendline should be a known kind")
	}
}

func TestOverlayDecodeChannel(t *testing.T) {
	var o Overlay
	raw := `{"type":"channel","label":"asc","upper":[[0,110],[10,130]],"lower":[[0,100],[10,120]],"color":"#f00"}`
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.Kind != OverlayChannel || o.Label != "asc" {
		t.Fatalf("unexpected kind/label %q %q", o.Kind, o.Label)
	}
	if len(o.Upper) != 2 || len(o.Lower) != 2 || o.Upper[1].Y != 130 {
		t.Fatalf("unexpected boundaries %+v %+v", o.Upper, o.Lower)
	}
	if o.Extra["color"] != "#f00" {
		t.Fatalf("unknown field not preserved: %#v", o.Extra)
	}
}

func TestOverlayUnknownKindRoundTrip(t *testing.T) {
	raw := `{"type":"fib_retracement","from":61000,"to":69000,"levels":[0.382,0.5,0.618]}`
	var o Overlay
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.Kind.Known() {
		t.Fatalf("fib_retracement should not be a known kind")
	}

	out, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var a, b map[string]any
	_ = json.Unmarshal([]byte(raw), &a)
	_ = json.Unmarshal(out, &b)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("round trip changed overlay:\n in: %s\nout: %s", raw, out)
	}
}

func TestOverlayMalformedPointsKeptInExtra(t *testing.T) {
	var o Overlay
	if err := json.Unmarshal([]byte(`{"type":"trendline","points":"n/a"}`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.Points != nil {
		t.Fatalf("expected no structured points, got %v", o.Points)
	}
	if o.Extra["points"] != "n/a" {
		t.Fatalf("malformed points should be kept verbatim, got %#v", o.Extra)
	}
}

func TestOverlayCloneIsDeep(t *testing.T) {
	o := Overlay{Kind: OverlayWedge, Upper: []Point{{1, 2}}, Extra: map[string]any{"k": []any{1.0}}}
	c := o.Clone()
	c.Upper[0].X = 9
	c.Extra["k"].([]any)[0] = 2.0
	if o.Upper[0].X != 1 || o.Extra["k"].([]any)[0] != 1.0 {
		t.Fatalf("clone shares state with source")
	}
}

func TestOverlayRoundTripIsExact(t *testing.T) {
	cases := []string{
		`{"foo":1}`,
		`{"id":12345678901234567890,"type":"x"}`,
		`{"label":"","type":""}`,
		`{"points":null,"type":"trendline"}`,
		`{"lower":[[0,1]],"ratio":0.6180339887498949,"type":"wedge","upper":[[0,2]]}`,
	}
	for _, raw := range cases {
		var o Overlay
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		out, err := json.Marshal(o)
		if err != nil {
			t.Fatalf("marshal %s: %v", raw, err)
		}
		// map keys are encoded sorted, matching the inputs above
		if string(out) != raw {
			t.Fatalf("round trip changed overlay:\n in: %s\nout: %s", raw, out)
		}
	}
}

func TestOverlayWithoutKindOmitsType(t *testing.T) {
	out, err := json.Marshal(Overlay{Extra: map[string]any{"foo": 1}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"foo":1}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}
