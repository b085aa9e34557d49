package models

import "encoding/json"

// Metadata carries auxiliary producer fields that have no fixed schema.
type Metadata map[string]any

// Clone returns a deep copy so stored metadata cannot be mutated by callers.
// Nil clones to an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return map[string]any(Metadata(x).Clone())
	case Metadata:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case []float64:
		return append([]float64(nil), x...)
	case []string:
		return append([]string(nil), x...)
	case json.RawMessage:
		return append(json.RawMessage(nil), x...)
	default:
		return v
	}
}
