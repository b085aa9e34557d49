package annotations

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"ChartMarks/internal/domain/models"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type waitMetrics struct {
	mu    sync.Mutex
	waits []bool
}

func (m *waitMetrics) RecordCacheHit(string)         {}
func (m *waitMetrics) RecordCacheMiss(string)        {}
func (m *waitMetrics) RecordCacheEviction(string)    {}
func (m *waitMetrics) RecordCacheWrite(string)       {}
func (m *waitMetrics) RecordError(string)            {}
func (m *waitMetrics) RecordLatency(string, float64) {}

func (m *waitMetrics) RecordWait(_ string, _ float64, ok bool) {
	m.mu.Lock()
	m.waits = append(m.waits, ok)
	m.mu.Unlock()
}

func TestLevelsRoundTripAcrossSpellings(t *testing.T) {
	c := NewLevelsCache()
	c.Set("BTC", []float64{95000.0, 93500.0}, []float64{99000.0}, nil)

	for _, sym := range []string{"btc", " $btc ", "$BTC", "BTC"} {
		e, ok := c.Get(sym)
		if !ok {
			t.Fatalf("%q: expected hit", sym)
		}
		if e.Symbol != "BTC" {
			t.Fatalf("%q: unexpected symbol %q", sym, e.Symbol)
		}
		if !reflect.DeepEqual(e.Supports, []float64{95000.0, 93500.0}) {
			t.Fatalf("%q: unexpected supports %v", sym, e.Supports)
		}
		if !reflect.DeepEqual(e.Resistances, []float64{99000.0}) {
			t.Fatalf("%q: unexpected resistances %v", sym, e.Resistances)
		}
		if e.Meta == nil || len(e.Meta) != 0 {
			t.Fatalf("%q: expected empty meta, got %v", sym, e.Meta)
		}
	}
}

func TestLevelsReplaceDoesNotMerge(t *testing.T) {
	c := NewLevelsCache()
	c.Set("ETH", []float64{1, 2}, []float64{3}, models.Metadata{"a": 1})
	c.Set("eth", []float64{4}, nil, models.Metadata{"b": 2})

	e, ok := c.Get("ETH")
	if !ok {
		t.Fatalf("expected hit")
	}
	if !reflect.DeepEqual(e.Supports, []float64{4}) || len(e.Resistances) != 0 {
		t.Fatalf("expected second write only, got %+v", e)
	}
	if _, ok := e.Meta["a"]; ok {
		t.Fatalf("meta from first write leaked: %v", e.Meta)
	}
}

func TestLevelsCallerCannotMutateStoredValue(t *testing.T) {
	c := NewLevelsCache()
	sup := []float64{1, 2}
	meta := models.Metadata{"src": "gpt"}
	c.Set("BTC", sup, nil, meta)
	sup[0] = 100
	meta["src"] = "other"

	e, _ := c.Get("BTC")
	e.Supports[1] = 200

	again, _ := c.Get("BTC")
	if !reflect.DeepEqual(again.Supports, []float64{1, 2}) {
		t.Fatalf("stored supports mutated: %v", again.Supports)
	}
	if again.Meta["src"] != "gpt" {
		t.Fatalf("stored meta mutated: %v", again.Meta)
	}
}

func TestLevelsExpiryEvicts(t *testing.T) {
	clk := &stepClock{t: time.Unix(1_700_000_000, 0)}
	c := NewLevelsCache(WithClock(clk.Now), WithMaxAge(time.Minute))
	c.Set("BTC", []float64{1}, nil, nil)

	clk.Advance(2 * time.Minute)
	if _, ok := c.Get("BTC"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if _, ok := c.GetWithin("BTC", time.Hour); ok {
		t.Fatalf("expired entry must stay gone for a larger max age")
	}
}

func TestOverlaysScenario(t *testing.T) {
	raw := `[{"type":"trendline","points":[[0,100],[10,120]]}]`
	var overlays []models.Overlay
	if err := json.Unmarshal([]byte(raw), &overlays); err != nil {
		t.Fatalf("decode: %v", err)
	}

	c := NewOverlaysCache()
	c.Set("$ETH ", overlays, nil)

	e, ok := c.Get("ETH")
	if !ok {
		t.Fatalf("expected hit")
	}
	out, err := json.Marshal(e.Overlays)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var want, got any
	_ = json.Unmarshal([]byte(raw), &want)
	_ = json.Unmarshal(out, &got)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("overlay changed: %s", out)
	}

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.GetWithin("ETH", 0); ok {
		t.Fatalf("expected miss with zero max age after a delay")
	}
}

func TestLevelsOutliveOverlaysByDefault(t *testing.T) {
	if NewOverlaysCache().MaxAge() >= NewLevelsCache().MaxAge() {
		t.Fatalf("levels should outlive overlays by default")
	}
}

func TestWaitForLevelsTimesOut(t *testing.T) {
	m := &waitMetrics{}
	c := NewLevelsCache(WithMetrics(m))

	start := time.Now()
	_, ok := c.Wait(context.Background(), "SOL", time.Second, 100*time.Millisecond)
	el := time.Since(start)

	if ok {
		t.Fatalf("expected miss")
	}
	if el < 900*time.Millisecond || el > 1300*time.Millisecond {
		t.Fatalf("wait took %v, want about 1s", el)
	}
	if len(m.waits) != 1 || m.waits[0] {
		t.Fatalf("expected one missed wait recorded, got %v", m.waits)
	}
}

func TestWaitForLevelsSeesLateWrite(t *testing.T) {
	c := NewLevelsCache()
	go func() {
		time.Sleep(50 * time.Millisecond)
		c.Set("$sol", []float64{140}, []float64{160}, nil)
	}()

	start := time.Now()
	e, ok := c.Wait(context.Background(), "SOL", 2*time.Second, 100*time.Millisecond)
	if !ok {
		t.Fatalf("expected hit")
	}
	if e.Symbol != "SOL" || e.Supports[0] != 140 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("wait returned late: %v", el)
	}
}

func TestWaitCancelledByContext(t *testing.T) {
	c := NewLevelsCache()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	if _, ok := c.Wait(ctx, "XRP", 5*time.Second, 0); ok {
		t.Fatalf("expected miss")
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("cancel did not end the wait: %v", el)
	}
}

func TestSubscribeSeesNormalizedKey(t *testing.T) {
	c := NewOverlaysCache()
	ch, cancel := c.Subscribe(1)
	defer cancel()

	c.Set(" $doge", nil, models.Metadata{"n": 1})
	u := <-ch
	if u.Key != "DOGE" {
		t.Fatalf("unexpected key %q", u.Key)
	}
}
