package repository

import (
	"encoding/json"
	"strings"
	"testing"

	"ChartMarks/internal/domain/models"
	domrepo "ChartMarks/internal/domain/repository"
)

func TestLatestCandlesQuery(t *testing.T) {
	q, err := latestCandlesQuery("market", domrepo.TF1s)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(q, "market.candles_1s") || !strings.Contains(q, "LIMIT ?") {
		t.Fatalf("unexpected query %s", q)
	}

	q, err = latestCandlesQuery("market", domrepo.TF5m)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(q, "market.candles_1m") || !strings.Contains(q, "toStartOfFiveMinutes") {
		t.Fatalf("5m should fold the 1m table: %s", q)
	}

	if _, err := latestCandlesQuery("market", domrepo.Timeframe("1h")); err == nil {
		t.Fatalf("expected error for unsupported timeframe")
	}
}

func TestReverseCandles(t *testing.T) {
	cs := []models.Candle{{Close: 3}, {Close: 2}, {Close: 1}}
	reverseCandles(cs)
	if cs[0].Close != 1 || cs[2].Close != 3 {
		t.Fatalf("unexpected order %+v", cs)
	}
}

func TestEncodeEvent(t *testing.T) {
	ev := models.NewLevelsEvent("node-a", " $btc", models.KeyLevels{Supports: []float64{95000}})
	msg, err := encodeEvent(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(msg.Key) != "BTC" {
		t.Fatalf("expected symbol key, got %q", msg.Key)
	}
	if len(msg.Headers) == 0 || msg.Headers[0].Key != HeaderSource || string(msg.Headers[0].Value) != "node-a" {
		t.Fatalf("missing source header %+v", msg.Headers)
	}

	var back models.AnnotationEvent
	if err := json.Unmarshal(msg.Value, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.ID != ev.ID || back.Kind != models.EventLevels || back.Supports[0] != 95000 {
		t.Fatalf("unexpected event %+v", back)
	}
}
