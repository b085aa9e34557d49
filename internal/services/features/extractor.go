package features

import (
	"math"
	"sort"

	"ChartMarks/internal/domain/models"
)

// ComputeLogReturns computes r_t = ln(C_t / C_{t-1}). Non-positive prices
// yield a zero return. Returns nil for fewer than two candles.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Close, candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the annualized sample deviation of the last window
// returns.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYearForTF returns the approximate number of bars per year.
func BarsPerYearForTF(tf string) float64 {
	switch tf {
	case "1s":
		return 365 * 24 * 60 * 60
	case "5m":
		return 365 * 24 * 12
	default:
		return 365 * 24 * 60
	}
}

// SwingPoints returns pivot highs and lows: bars whose high (low) is the
// strict extreme of the k bars on each side. Both lists are sorted
// descending by price and deduplicated.
func SwingPoints(candles []models.Candle, k int) (highs, lows []float64) {
	if k < 1 || len(candles) < 2*k+1 {
		return nil, nil
	}
	for i := k; i < len(candles)-k; i++ {
		isHigh, isLow := true, true
		for j := i - k; j <= i+k && (isHigh || isLow); j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}
	return dedupDesc(highs), dedupDesc(lows)
}

func dedupDesc(xs []float64) []float64 {
	if len(xs) == 0 {
		return xs
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(xs)))
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
