package features

import (
	"sort"

	"ChartMarks/internal/domain/models"
)

// MarketContext condenses a candle window for the analyst prompt.
type MarketContext struct {
	Symbol      string    `json:"symbol"`
	Timeframe   string    `json:"tf"`
	Bars        int       `json:"bars"`
	LastClose   float64   `json:"last_close"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	ChangePct   float64   `json:"change_pct"`
	RealizedVol float64   `json:"realized_vol"`
	SwingHighs  []float64 `json:"swing_highs"`
	SwingLows   []float64 `json:"swing_lows"`
}

const (
	volWindow   = 60
	swingRadius = 3
	maxSwings   = 8
)

// Summarize builds a MarketContext from candles in ascending time order.
func Summarize(symbol, tf string, candles []models.Candle) MarketContext {
	mc := MarketContext{Symbol: symbol, Timeframe: tf, Bars: len(candles)}
	if len(candles) == 0 {
		return mc
	}

	mc.High, mc.Low = candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		if c.High > mc.High {
			mc.High = c.High
		}
		if c.Low < mc.Low {
			mc.Low = c.Low
		}
	}
	first, last := candles[0].Open, candles[len(candles)-1].Close
	mc.LastClose = last
	if first > 0 {
		mc.ChangePct = (last - first) / first * 100
	}

	rets := ComputeLogReturns(candles)
	window := volWindow
	if len(rets) < window {
		window = len(rets)
	}
	mc.RealizedVol = RealizedVolatility(rets, window, BarsPerYearForTF(tf))

	highs, lows := SwingPoints(candles, swingRadius)
	mc.SwingHighs = nearest(highs, last, maxSwings)
	mc.SwingLows = nearest(lows, last, maxSwings)
	return mc
}

// nearest keeps at most n prices closest to ref, preserving order.
func nearest(prices []float64, ref float64, n int) []float64 {
	if len(prices) <= n {
		return prices
	}
	idx := make([]int, len(prices))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return abs(prices[idx[a]]-ref) < abs(prices[idx[b]]-ref)
	})
	keep := idx[:n]
	sort.Ints(keep)

	out := make([]float64, n)
	for i, j := range keep {
		out[i] = prices[j]
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
