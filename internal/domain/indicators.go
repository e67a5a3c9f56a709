package domain

// IndicatorSnapshot point-in-time technical indicators. A nil field means the
// source has no opinion on that signal; zero is a valid value.
type IndicatorSnapshot struct {
	RSI           *float64 `json:"rsi,omitempty"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	EMAFast       *float64 `json:"ema_fast,omitempty"`
	EMASlow       *float64 `json:"ema_slow,omitempty"`
	TrendStrength *float64 `json:"trend_strength,omitempty"`
}

// Float returns a pointer to v, handy for building snapshots.
func Float(v float64) *float64 {
	return &v
}
