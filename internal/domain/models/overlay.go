package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// OverlayKind names a drawable annotation. Producers may send kinds not
// listed here; those survive as-is with their fields in Overlay.Extra.
type OverlayKind string

const (
	OverlayTrendline OverlayKind = "trendline"
	OverlayChannel   OverlayKind = "channel"
	OverlayWedge     OverlayKind = "wedge"
)

// Known reports whether the kind has structured fields.
func (k OverlayKind) Known() bool {
	switch k {
	case OverlayTrendline, OverlayChannel, OverlayWedge:
		return true
	default:
		return false
	}
}

// Point is an (x, y) chart coordinate, encoded as a two-element array.
type Point struct {
	X float64
	Y float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var xy []float64
	if err := json.Unmarshal(b, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("point: want 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Overlay describes one drawable annotation.
//
//	trendline: Points (two or more)
//	channel, wedge: Upper and Lower boundary lines
//
// Any field without a structured home, including malformed, empty or null
// structured fields, is kept verbatim in Extra so re-encoding reproduces
// the input.
type Overlay struct {
	Kind   OverlayKind
	Label  string
	Points []Point
	Upper  []Point
	Lower  []Point
	Extra  map[string]any
}

// Clone deep-copies the overlay.
func (o Overlay) Clone() Overlay {
	c := Overlay{
		Kind:   o.Kind,
		Label:  o.Label,
		Points: clonePoints(o.Points),
		Upper:  clonePoints(o.Upper),
		Lower:  clonePoints(o.Lower),
	}
	if o.Extra != nil {
		c.Extra = map[string]any(Metadata(o.Extra).Clone())
	}
	return c
}

func (o Overlay) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(o.Extra)+5)
	for k, v := range o.Extra {
		m[k] = v
	}
	if o.Kind != "" {
		m["type"] = string(o.Kind)
	}
	if o.Label != "" {
		m["label"] = o.Label
	}
	if o.Points != nil {
		m["points"] = o.Points
	}
	if o.Upper != nil {
		m["upper"] = o.Upper
	}
	if o.Lower != nil {
		m["lower"] = o.Lower
	}
	return json.Marshal(m)
}

func (o *Overlay) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}

	*o = Overlay{}
	for k, v := range raw {
		switch k {
		case "type":
			var s string
			if err := json.Unmarshal(v, &s); err == nil && s != "" {
				o.Kind = OverlayKind(s)
				continue
			}
		case "label":
			var s string
			if err := json.Unmarshal(v, &s); err == nil && s != "" {
				o.Label = s
				continue
			}
		case "points", "upper", "lower":
			var pts []Point
			if err := json.Unmarshal(v, &pts); err == nil && pts != nil {
				switch k {
				case "points":
					o.Points = pts
				case "upper":
					o.Upper = pts
				default:
					o.Lower = pts
				}
				continue
			}
		}

		val, err := decodeExtra(v)
		if err != nil {
			return fmt.Errorf("overlay field %q: %w", k, err)
		}
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[k] = val
	}
	return nil
}

// decodeExtra keeps numbers as json.Number so they re-encode digit for digit.
func decodeExtra(v json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var val any
	if err := dec.Decode(&val); err != nil {
		return nil, err
	}
	return val, nil
}

// OverlaysEntry is what readers of the overlays cache receive.
type OverlaysEntry struct {
	Symbol    string    `json:"symbol"`
	Overlays  []Overlay `json:"overlays"`
	Meta      Metadata  `json:"meta"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OverlaySet is the payload of the overlays cache.
type OverlaySet struct {
	Overlays []Overlay `json:"overlays"`
	Meta     Metadata  `json:"meta"`
}

// Clone deep-copies the payload.
func (s OverlaySet) Clone() OverlaySet {
	out := OverlaySet{
		Overlays: make([]Overlay, len(s.Overlays)),
		Meta:     s.Meta.Clone(),
	}
	for i := range s.Overlays {
		out.Overlays[i] = s.Overlays[i].Clone()
	}
	return out
}

// NewOverlaysEntry builds a read result from a stored payload.
func NewOverlaysEntry(symbol string, s OverlaySet, updatedAt time.Time) OverlaysEntry {
	c := s.Clone()
	return OverlaysEntry{
		Symbol:    symbol,
		Overlays:  c.Overlays,
		Meta:      c.Meta,
		UpdatedAt: updatedAt,
	}
}

func clonePoints(ps []Point) []Point {
	if ps == nil {
		return nil
	}
	out := make([]Point, len(ps))
	copy(out, ps)
	return out
}
