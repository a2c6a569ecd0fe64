package domain

// ScannedPair is the mutable per-symbol record maintained for every
// monitored trading pair. Discovery creates it and owns the
// discovery-sourced fields (Volume, Regime, HourlyTrend); the scorer
// owns the live indicator fields. All mutation is serialized through
// the engine loop, so the struct carries no lock of its own.
type ScannedPair struct {
	Symbol      string
	Price       float64 // last observed price
	QuoteVolume float64 // 24h quoted volume from discovery
	Volatility  float64 // stddev/mean of closes, percent
	Trend       Trend   // short-horizon trend from the scoring timeframe
	HourlyTrend Trend   // longer-horizon trend, ADX-gated
	Regime      MarketRegime
	RSI         float64
	ADX         float64
	ATR         float64
	Score       Score
	// BaseScore holds the technical qualification before a cooldown
	// override so the suppressed signal stays visible.
	BaseScore Score
	// StopHint is a structural stop-loss suggestion attached by the
	// breakout scorer (prior candle low). Zero when absent.
	StopHint float64
	// NeedsHydration marks a freshly admitted symbol whose candle
	// history has not been loaded yet.
	NeedsHydration bool
}

// NewScannedPair returns a pair record with neutral defaults, flagged
// for historical-data hydration.
func NewScannedPair(symbol string) *ScannedPair {
	return &ScannedPair{
		Symbol:         symbol,
		Trend:          TrendNeutral,
		HourlyTrend:    TrendNeutral,
		Regime:         RegimeNeutral,
		Score:          ScoreHold,
		BaseScore:      ScoreHold,
		NeedsHydration: true,
	}
}
