package util

import (
	"math"
	"testing"
	"time"
)

func TestParseSecondsDecimal(t *testing.T) {
	got, err := ParseSeconds("1.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 1500*time.Millisecond {
		t.Fatalf("unexpected duration %v", got)
	}
}

func TestParseSecondsZero(t *testing.T) {
	got, err := ParseSeconds("0")
	if err != nil || got != 0 {
		t.Fatalf("expected zero, got %v %v", got, err)
	}
}

func TestParseSecondsGoNotation(t *testing.T) {
	got, err := ParseSeconds("250ms")
	if err != nil || got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v %v", got, err)
	}
}

func TestParseSecondsRejects(t *testing.T) {
	for _, s := range []string{"", "-1", "-2s", "soon", "NaN"} {
		if _, err := ParseSeconds(s); err == nil {
			t.Fatalf("%q: expected error", s)
		}
	}
}

func TestParseSecondsHuge(t *testing.T) {
	got, err := ParseSeconds("1e30")
	if err != nil || got != time.Duration(math.MaxInt64) {
		t.Fatalf("expected saturation, got %v %v", got, err)
	}
}

func TestClampDuration(t *testing.T) {
	if ClampDuration(time.Hour, 0, time.Minute) != time.Minute {
		t.Fatalf("expected upper clamp")
	}
	if ClampDuration(-time.Second, 0, time.Minute) != 0 {
		t.Fatalf("expected lower clamp")
	}
}
