package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ChartMarks/internal/domain/models"
	domrepo "ChartMarks/internal/domain/repository"
	"ChartMarks/internal/service/annotations"
	"ChartMarks/internal/service/ratelimit"
	"ChartMarks/pkg/logger"
)

type nopMetrics struct {
	mu     sync.Mutex
	errors []string
}

func (m *nopMetrics) RecordCacheHit(string)            {}
func (m *nopMetrics) RecordCacheMiss(string)           {}
func (m *nopMetrics) RecordCacheEviction(string)       {}
func (m *nopMetrics) RecordCacheWrite(string)          {}
func (m *nopMetrics) RecordWait(string, float64, bool) {}
func (m *nopMetrics) RecordLatency(string, float64)    {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.AnnotationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.AnnotationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingQueue struct {
	msgType string
	payload interface{}
	err     error
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.msgType, q.payload = msgType, payload
	return q.err
}

type fakeStore struct {
	candles []models.Candle
	err     error
	gotN    int
	gotTF   domrepo.Timeframe
}

func (s *fakeStore) GetLatestNCandles(_ context.Context, _ string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	s.gotN, s.gotTF = n, tf
	return s.candles, s.err
}

type fakeAnalyst struct {
	out   models.Analysis
	err   error
	calls int
}

func (a *fakeAnalyst) Analyze(context.Context, string, string, []models.Candle) (models.Analysis, error) {
	a.calls++
	return a.out, a.err
}

func newCaches(m domrepo.Metrics) (*annotations.LevelsCache, *annotations.OverlaysCache) {
	return annotations.NewLevelsCache(annotations.WithMetrics(m)), annotations.NewOverlaysCache(annotations.WithMetrics(m))
}

func TestPutLevelsPublishesEvent(t *testing.T) {
	levels, overlays := newCaches(&nopMetrics{})
	pub := &recordingPublisher{}
	uc := NewAnnotationsUseCase(levels, overlays, pub, nil, nil, "node-a", logger.Nop())

	e := uc.PutLevels(context.Background(), "$btc", []float64{1}, []float64{2}, nil)
	if e.Symbol != "BTC" {
		t.Fatalf("unexpected symbol %q", e.Symbol)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Kind != models.EventLevels || ev.Symbol != "BTC" || ev.Source != "node-a" || ev.Resistances[0] != 2 {
		t.Fatalf("unexpected event %+v", ev)
	}

	got, ok := uc.GetLevels(LookupParams{Symbol: "btc"})
	if !ok || got.Supports[0] != 1 {
		t.Fatalf("expected stored levels, got %+v %v", got, ok)
	}
}

func TestPublishFailureKeepsWrite(t *testing.T) {
	levels, overlays := newCaches(&nopMetrics{})
	pub := &recordingPublisher{err: errors.New("broker down")}
	uc := NewAnnotationsUseCase(levels, overlays, pub, nil, nil, "node-a", logger.Nop())

	uc.PutOverlays(context.Background(), "ETH", []models.Overlay{{Kind: models.OverlayTrendline}}, nil)
	if _, ok := uc.GetOverlays(LookupParams{Symbol: "eth"}); !ok {
		t.Fatalf("write must survive a publish failure")
	}
}

func TestGetWithExplicitMaxAge(t *testing.T) {
	levels, overlays := newCaches(&nopMetrics{})
	uc := NewAnnotationsUseCase(levels, overlays, nil, nil, nil, "node-a", logger.Nop())
	uc.PutOverlays(context.Background(), "ETH", nil, nil)

	time.Sleep(5 * time.Millisecond)
	zero := time.Duration(0)
	if _, ok := uc.GetOverlays(LookupParams{Symbol: "ETH", MaxAge: &zero}); ok {
		t.Fatalf("expected miss with zero max age")
	}
}

func TestWaitLevelsUsesGivenTimeout(t *testing.T) {
	levels, overlays := newCaches(&nopMetrics{})
	uc := NewAnnotationsUseCase(levels, overlays, nil, nil, nil, "node-a", logger.Nop())

	timeout, poll := 50*time.Millisecond, 10*time.Millisecond
	start := time.Now()
	if _, ok := uc.WaitLevels(context.Background(), WaitParams{Symbol: "SOL", Timeout: &timeout, Poll: &poll}); ok {
		t.Fatalf("expected miss")
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("wait ignored timeout: %v", el)
	}
}

func TestWaitLevelsCapsDefaultTimeout(t *testing.T) {
	levels, overlays := newCaches(&nopMetrics{})
	uc := NewAnnotationsUseCase(levels, overlays, nil, nil, nil, "node-a", logger.Nop())

	if d, _ := levels.WaitDefaults(); d < time.Second {
		t.Fatalf("expected a default timeout above the cap, got %v", d)
	}
	start := time.Now()
	if _, ok := uc.WaitLevels(context.Background(), WaitParams{Symbol: "SOL", MaxTimeout: 50 * time.Millisecond}); ok {
		t.Fatalf("expected miss")
	}
	if el := time.Since(start); el > 900*time.Millisecond {
		t.Fatalf("default timeout was not capped: %v", el)
	}
}

func TestRequestAnalysis(t *testing.T) {
	levels, overlays := newCaches(&nopMetrics{})
	q := &recordingQueue{}
	uc := NewAnnotationsUseCase(levels, overlays, nil, q, ratelimit.New(1, time.Hour), "node-a", logger.Nop())

	req, err := uc.RequestAnalysis(context.Background(), models.AnalysisRequest{Symbol: " $btc", Timeframe: "15m", Bars: 100})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if q.msgType != AnalysisJobType {
		t.Fatalf("unexpected type %q", q.msgType)
	}
	sent := q.payload.(models.AnalysisRequest)
	if sent.Symbol != "BTC" || sent.Timeframe != "1m" || sent.Bars != 100 || req != sent {
		t.Fatalf("unexpected payload %+v", sent)
	}

	if _, err := uc.RequestAnalysis(context.Background(), models.AnalysisRequest{Symbol: "BTC"}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if _, err := uc.RequestAnalysis(context.Background(), models.AnalysisRequest{Symbol: "$"}); !errors.Is(err, ErrEmptySymbol) {
		t.Fatalf("expected empty symbol error, got %v", err)
	}
}

func TestRequestAnalysisWithoutQueue(t *testing.T) {
	levels, overlays := newCaches(&nopMetrics{})
	uc := NewAnnotationsUseCase(levels, overlays, nil, nil, nil, "node-a", logger.Nop())
	if _, err := uc.RequestAnalysis(context.Background(), models.AnalysisRequest{Symbol: "BTC"}); !errors.Is(err, ErrQueueDisabled) {
		t.Fatalf("expected queue disabled, got %v", err)
	}
}

func TestKafkaHandlerMirrorsPeerEvents(t *testing.T) {
	m := &nopMetrics{}
	levels, overlays := newCaches(m)
	h := NewKafkaAnnotationsHandler("annotations", "node-a", levels, overlays, m, logger.Nop())

	peer, _ := json.Marshal(models.NewLevelsEvent("node-b", "$sol", models.KeyLevels{Supports: []float64{10}}))
	if err := h.Handle(context.Background(), peer); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if e, ok := levels.Get("SOL"); !ok || e.Supports[0] != 10 {
		t.Fatalf("expected mirrored levels, got %+v %v", e, ok)
	}

	ov, _ := json.Marshal(models.NewOverlaysEvent("node-b", "SOL", models.OverlaySet{
		Overlays: []models.Overlay{{Kind: "fib", Extra: map[string]any{"ratio": 0.618}}},
	}))
	if err := h.Handle(context.Background(), ov); err != nil {
		t.Fatalf("handle: %v", err)
	}
	e, ok := overlays.Get("sol")
	if !ok || e.Overlays[0].Kind != "fib" || e.Overlays[0].Extra["ratio"] != json.Number("0.618") {
		t.Fatalf("expected mirrored overlays, got %+v %v", e, ok)
	}
}

func TestKafkaHandlerSkipsOwnEvents(t *testing.T) {
	m := &nopMetrics{}
	levels, overlays := newCaches(m)
	h := NewKafkaAnnotationsHandler("annotations", "node-a", levels, overlays, m, logger.Nop())

	own, _ := json.Marshal(models.NewLevelsEvent("node-a", "BTC", models.KeyLevels{Supports: []float64{1}}))
	if err := h.Handle(context.Background(), own); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := levels.Get("BTC"); ok {
		t.Fatalf("own event must not be applied again")
	}
}

func TestKafkaHandlerBadInput(t *testing.T) {
	m := &nopMetrics{}
	levels, overlays := newCaches(m)
	h := NewKafkaAnnotationsHandler("annotations", "node-a", levels, overlays, m, logger.Nop())

	if err := h.Handle(context.Background(), []byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := h.Handle(context.Background(), []byte(`{"kind":"volume","symbol":"BTC"}`)); err != nil {
		t.Fatalf("unknown kind should be dropped, got %v", err)
	}
	if len(m.errors) != 2 || m.errors[0] != "consumer_unmarshal" || m.errors[1] != "consumer_unknown_kind" {
		t.Fatalf("unexpected error kinds %v", m.errors)
	}
}

func TestAnalysisJobStoresAndPublishes(t *testing.T) {
	m := &nopMetrics{}
	levels, overlays := newCaches(m)
	pub := &recordingPublisher{}
	store := &fakeStore{candles: []models.Candle{{Close: 1}, {Close: 2}}}
	analyst := &fakeAnalyst{out: models.Analysis{
		Levels:   models.KeyLevels{Supports: []float64{90}, Resistances: []float64{110}, Meta: models.Metadata{"model": "gpt-4"}},
		Overlays: models.OverlaySet{Overlays: []models.Overlay{{Kind: models.OverlayTrendline, Points: []models.Point{{X: 0, Y: 1}, {X: 1, Y: 2}}}}},
	}}
	job := NewAnalysisJob(store, analyst, levels, overlays, pub, m, "node-a", logger.Nop())

	payload, _ := json.Marshal(models.AnalysisRequest{Symbol: "$eth", Timeframe: "5m"})
	if err := job.Handle(context.Background(), json.RawMessage(payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.gotN != defaultAnalysisBars || store.gotTF != domrepo.TF5m {
		t.Fatalf("unexpected candle query n=%d tf=%s", store.gotN, store.gotTF)
	}
	if e, ok := levels.Get("ETH"); !ok || e.Supports[0] != 90 || e.Meta["model"] != "gpt-4" {
		t.Fatalf("levels not stored: %+v %v", e, ok)
	}
	if e, ok := overlays.Get("ETH"); !ok || len(e.Overlays) != 1 {
		t.Fatalf("overlays not stored: %+v %v", e, ok)
	}
	if len(pub.events) != 2 || pub.events[0].Kind != models.EventLevels || pub.events[1].Kind != models.EventOverlays {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	for _, ev := range pub.events {
		if ev.Source != "node-a" || ev.Symbol != "ETH" {
			t.Fatalf("unexpected event envelope %+v", ev)
		}
	}
}

func TestAnalysisJobFailures(t *testing.T) {
	m := &nopMetrics{}
	levels, overlays := newCaches(m)
	pub := &recordingPublisher{}

	storeErr := &fakeStore{err: errors.New("clickhouse down")}
	job := NewAnalysisJob(storeErr, &fakeAnalyst{}, levels, overlays, pub, m, "node-a", logger.Nop())
	if err := job.Handle(context.Background(), models.AnalysisRequest{Symbol: "BTC"}); err == nil {
		t.Fatalf("expected store error to trigger retry")
	}

	analyst := &fakeAnalyst{}
	job = NewAnalysisJob(&fakeStore{}, analyst, levels, overlays, pub, m, "node-a", logger.Nop())
	if err := job.Handle(context.Background(), models.AnalysisRequest{Symbol: "BTC"}); err != nil {
		t.Fatalf("no candles is not an error: %v", err)
	}
	if analyst.calls != 0 {
		t.Fatalf("analyst must not run without candles")
	}

	analyst = &fakeAnalyst{err: errors.New("model timeout")}
	job = NewAnalysisJob(&fakeStore{candles: []models.Candle{{}}}, analyst, levels, overlays, pub, m, "node-a", logger.Nop())
	if err := job.Handle(context.Background(), models.AnalysisRequest{Symbol: "BTC"}); err == nil {
		t.Fatalf("expected analyst error")
	}
	if _, ok := levels.Get("BTC"); ok {
		t.Fatalf("failed analysis must not write levels")
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed analysis must not publish")
	}
}
