package models

import "time"

// KeyLevels is the payload of the levels cache.
type KeyLevels struct {
	Supports    []float64 `json:"supports"`
	Resistances []float64 `json:"resistances"`
	Meta        Metadata  `json:"meta"`
}

// Clone deep-copies the payload.
func (k KeyLevels) Clone() KeyLevels {
	return KeyLevels{
		Supports:    cloneFloats(k.Supports),
		Resistances: cloneFloats(k.Resistances),
		Meta:        k.Meta.Clone(),
	}
}

// LevelsEntry is what readers of the levels cache receive.
type LevelsEntry struct {
	Symbol      string    `json:"symbol"`
	Supports    []float64 `json:"supports"`
	Resistances []float64 `json:"resistances"`
	Meta        Metadata  `json:"meta"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewLevelsEntry builds a read result from a stored payload.
func NewLevelsEntry(symbol string, k KeyLevels, updatedAt time.Time) LevelsEntry {
	c := k.Clone()
	return LevelsEntry{
		Symbol:      symbol,
		Supports:    c.Supports,
		Resistances: c.Resistances,
		Meta:        c.Meta,
		UpdatedAt:   updatedAt,
	}
}

func cloneFloats(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}
