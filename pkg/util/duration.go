package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseSeconds reads a duration given either as decimal seconds ("1.5",
// "0") or in Go notation ("250ms", "2m"). Negative values are rejected.
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 || math.IsNaN(f) {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		if f >= math.MaxInt64/float64(time.Second) {
			return time.Duration(math.MaxInt64), nil
		}
		return time.Duration(f * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// ClampDuration bounds d to [min, max].
func ClampDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
