package scanner

import (
	"context"
	"fmt"

	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/indicators"
	"cryptoScannerBot/internal/ports"
)

// StrategyFilterChain identifies the default scoring strategy.
const StrategyFilterChain = "filter_chain"

// FilterChainConfig holds the tunable periods of the filter-chain
// scorer. Zero values fall back to the standard periods.
type FilterChainConfig struct {
	RSIPeriod        int
	ADXPeriod        int
	TrendSMAPeriod   int
	ATRPeriod        int
	VolatilityPeriod int
	MinADX           float64
	RSIFloor         float64 // BUY requires RSI above this
	RSICeiling       float64 // STRONG_BUY requires RSI below this
}

// FilterChainScorer classifies a pair by evaluating a fixed chain of
// filters, short-circuiting to HOLD on the first failure:
// market regime, longer-horizon confirmation, short-horizon trend
// (ADX and close over SMA), volatility floor, volume confirmation.
// Pairs passing every enabled filter score STRONG_BUY inside the RSI
// sweet spot and BUY above the floor.
type FilterChainScorer struct {
	cfg    FilterChainConfig
	logger ports.Logger
}

// NewFilterChainScorer creates the default scorer.
func NewFilterChainScorer(cfg FilterChainConfig, logger ports.Logger) (*FilterChainScorer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for filter-chain scorer")
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = indicators.DefaultRSIPeriod
	}
	if cfg.ADXPeriod <= 0 {
		cfg.ADXPeriod = indicators.DefaultADXPeriod
	}
	if cfg.TrendSMAPeriod <= 0 {
		cfg.TrendSMAPeriod = indicators.DefaultTrendSMAPeriod
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = indicators.DefaultATRPeriod
	}
	if cfg.VolatilityPeriod <= 0 {
		cfg.VolatilityPeriod = indicators.DefaultTrendSMAPeriod
	}
	if cfg.MinADX <= 0 {
		cfg.MinADX = 25
	}
	if cfg.RSIFloor <= 0 {
		cfg.RSIFloor = 50
	}
	if cfg.RSICeiling <= 0 {
		cfg.RSICeiling = 70
	}
	return &FilterChainScorer{cfg: cfg, logger: logger}, nil
}

// Name returns the strategy identifier.
func (f *FilterChainScorer) Name() string { return StrategyFilterChain }

// RequiredDataPoints returns the minimum candle count for one pass.
func (f *FilterChainScorer) RequiredDataPoints() int {
	required := 2*f.cfg.ADXPeriod + 1 // ADX is the hungriest indicator
	for _, n := range []int{f.cfg.TrendSMAPeriod, f.cfg.RSIPeriod + 1, f.cfg.ATRPeriod + 1, f.cfg.VolatilityPeriod} {
		if n > required {
			required = n
		}
	}
	return required
}

// Evaluate recomputes the rolling indicators, stores them on the pair
// and walks the filter chain.
func (f *FilterChainScorer) Evaluate(ctx context.Context, pair *domain.ScannedPair, candles []*domain.Candle, settings *domain.BotSettings) (ports.ScoreResult, error) {
	if len(candles) < f.RequiredDataPoints() {
		return ports.ScoreResult{}, fmt.Errorf("%w: have %d, need %d", ports.ErrInsufficientData, len(candles), f.RequiredDataPoints())
	}

	rsi, err := indicators.RSI(candles, f.cfg.RSIPeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}
	adx, err := indicators.ADX(candles, f.cfg.ADXPeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}
	sma, err := indicators.SMA(candles, f.cfg.TrendSMAPeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}
	atr, err := indicators.ATR(candles, f.cfg.ATRPeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}
	volatility, err := indicators.Volatility(candles, f.cfg.VolatilityPeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}

	last := candles[len(candles)-1]

	// Update the live indicator fields before filtering so the record
	// reflects the latest reading even when the score stays HOLD.
	pair.RSI = rsi
	pair.ADX = adx
	pair.ATR = atr
	pair.Volatility = volatility
	pair.Price = last.Close
	switch {
	case last.Close > sma:
		pair.Trend = domain.TrendUp
	case last.Close < sma:
		pair.Trend = domain.TrendDown
	default:
		pair.Trend = domain.TrendNeutral
	}

	// Filter chain, fixed order, HOLD on first failure.
	if settings.UseMarketRegimeFilter && pair.Regime != domain.RegimeUptrend {
		return ports.ScoreResult{Score: domain.ScoreHold}, nil
	}
	if settings.UseMTFConfirmation && pair.HourlyTrend != domain.TrendUp {
		return ports.ScoreResult{Score: domain.ScoreHold}, nil
	}
	if adx <= f.cfg.MinADX || last.Close <= sma {
		return ports.ScoreResult{Score: domain.ScoreHold}, nil
	}
	if volatility < settings.MinVolatilityPct {
		return ports.ScoreResult{Score: domain.ScoreHold}, nil
	}
	if settings.UseVolumeConfirmation {
		avgVolume, err := indicators.VolumeSMA(candles, f.cfg.VolatilityPeriod)
		if err != nil {
			return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
		}
		if last.Volume < avgVolume {
			return ports.ScoreResult{Score: domain.ScoreHold}, nil
		}
	}

	switch {
	case rsi > f.cfg.RSIFloor && rsi < f.cfg.RSICeiling:
		return ports.ScoreResult{Score: domain.ScoreStrongBuy}, nil
	case rsi > f.cfg.RSIFloor:
		return ports.ScoreResult{Score: domain.ScoreBuy}, nil
	default:
		return ports.ScoreResult{Score: domain.ScoreHold}, nil
	}
}
