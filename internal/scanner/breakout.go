package scanner

import (
	"context"
	"fmt"
	"sort"

	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/indicators"
	"cryptoScannerBot/internal/ports"
)

// StrategyBreakout identifies the alternate squeeze-breakout strategy.
const StrategyBreakout = "breakout"

// BreakoutConfig holds the tunable parameters of the breakout scorer.
type BreakoutConfig struct {
	BollingerPeriod   int
	BollingerStdDev   float64
	WidthLookback     int     // history of band widths for the percentile
	SqueezePercentile float64 // widths at or below this percentile count as squeezed
	VolumePeriod      int
	VolumeBreakoutMul float64 // breakout volume vs trailing average
	RSIPeriod         int
	RSISafetyCeiling  float64 // reject breakouts into overbought extremes
	ATRPeriod         int
}

// BreakoutScorer detects Bollinger Band squeezes and validates the
// candle that breaks out of one. A squeezed pair scores COMPRESSION;
// the candle immediately following a squeeze that closes above the
// upper band with confirming volume and a trend/RSI safety check
// scores STRONG_BUY carrying the prior candle's low as a structural
// stop hint; a breakout failing validation scores FAKE_BREAKOUT.
type BreakoutScorer struct {
	cfg    BreakoutConfig
	logger ports.Logger
}

// NewBreakoutScorer creates the alternate scorer.
func NewBreakoutScorer(cfg BreakoutConfig, logger ports.Logger) (*BreakoutScorer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for breakout scorer")
	}
	if cfg.BollingerPeriod <= 0 {
		cfg.BollingerPeriod = indicators.DefaultBollingerPeriod
	}
	if cfg.BollingerStdDev <= 0 {
		cfg.BollingerStdDev = indicators.DefaultBollingerStdDev
	}
	if cfg.WidthLookback <= 0 {
		cfg.WidthLookback = 50
	}
	if cfg.SqueezePercentile <= 0 {
		cfg.SqueezePercentile = 15
	}
	if cfg.VolumePeriod <= 0 {
		cfg.VolumePeriod = indicators.DefaultTrendSMAPeriod
	}
	if cfg.VolumeBreakoutMul <= 0 {
		cfg.VolumeBreakoutMul = 2.0
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = indicators.DefaultRSIPeriod
	}
	if cfg.RSISafetyCeiling <= 0 {
		cfg.RSISafetyCeiling = 75
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = indicators.DefaultATRPeriod
	}
	return &BreakoutScorer{cfg: cfg, logger: logger}, nil
}

// Name returns the strategy identifier.
func (b *BreakoutScorer) Name() string { return StrategyBreakout }

// RequiredDataPoints returns the minimum candle count for one pass.
func (b *BreakoutScorer) RequiredDataPoints() int {
	required := b.cfg.BollingerPeriod + b.cfg.WidthLookback
	if n := b.cfg.RSIPeriod + 1; n > required {
		required = n
	}
	if n := b.cfg.VolumePeriod; n > required {
		required = n
	}
	if n := b.cfg.ATRPeriod + 1; n > required {
		required = n
	}
	return required
}

// Evaluate classifies the pair from its squeeze/breakout state.
func (b *BreakoutScorer) Evaluate(ctx context.Context, pair *domain.ScannedPair, candleData []*domain.Candle, settings *domain.BotSettings) (ports.ScoreResult, error) {
	if len(candleData) < b.RequiredDataPoints() {
		return ports.ScoreResult{}, fmt.Errorf("%w: have %d, need %d", ports.ErrInsufficientData, len(candleData), b.RequiredDataPoints())
	}

	widths, err := b.bandWidths(candleData)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}
	threshold := percentile(widths, b.cfg.SqueezePercentile)
	currentSqueezed := widths[len(widths)-1] <= threshold
	prevSqueezed := widths[len(widths)-2] <= threshold

	rsi, err := indicators.RSI(candleData, b.cfg.RSIPeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}
	volatility, err := indicators.Volatility(candleData, b.cfg.VolumePeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}
	atr, err := indicators.ATR(candleData, b.cfg.ATRPeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}

	upper, _, _, err := indicators.BollingerBands(candleData, b.cfg.BollingerPeriod, b.cfg.BollingerStdDev)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}
	avgVolume, err := indicators.VolumeSMA(candleData, b.cfg.VolumePeriod)
	if err != nil {
		return ports.ScoreResult{}, fmt.Errorf("%w: %v", ports.ErrInsufficientData, err)
	}

	last := candleData[len(candleData)-1]
	prior := candleData[len(candleData)-2]

	pair.RSI = rsi
	pair.ATR = atr
	pair.Volatility = volatility
	pair.Price = last.Close

	if prevSqueezed && last.Close > upper {
		// Candle immediately following a squeeze broke the upper band;
		// validate it before trusting it.
		volumeConfirmed := last.Volume >= b.cfg.VolumeBreakoutMul*avgVolume
		safetyPassed := rsi < b.cfg.RSISafetyCeiling && pair.HourlyTrend != domain.TrendDown
		if volumeConfirmed && safetyPassed {
			return ports.ScoreResult{Score: domain.ScoreStrongBuy, StopHint: prior.Low}, nil
		}
		return ports.ScoreResult{Score: domain.ScoreFakeBreakout}, nil
	}

	if currentSqueezed {
		return ports.ScoreResult{Score: domain.ScoreCompression}, nil
	}
	return ports.ScoreResult{Score: domain.ScoreHold}, nil
}

// bandWidths computes the normalized Bollinger band width for each of
// the trailing WidthLookback windows, oldest first.
func (b *BreakoutScorer) bandWidths(candleData []*domain.Candle) ([]float64, error) {
	out := make([]float64, 0, b.cfg.WidthLookback)
	start := len(candleData) - b.cfg.WidthLookback
	for i := start; i < len(candleData); i++ {
		window := candleData[:i+1]
		upper, middle, lower, err := indicators.BollingerBands(window, b.cfg.BollingerPeriod, b.cfg.BollingerStdDev)
		if err != nil {
			return nil, err
		}
		if middle == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (upper-lower)/middle)
	}
	return out, nil
}

// percentile returns the value at the given percentile (0-100) of the
// sample using nearest-rank on a sorted copy.
func percentile(values []float64, pct float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if len(sorted) == 0 {
		return 0
	}
	rank := int(pct / 100 * float64(len(sorted)))
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
