package repository

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1s Timeframe = "1s"
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
)

// ParseTimeframe converts a raw string to a supported timeframe, falling back to 1m.
func ParseTimeframe(s string) Timeframe {
	switch tf := Timeframe(s); tf {
	case TF1s, TF1m, TF5m:
		return tf
	default:
		return TF1m
	}
}
