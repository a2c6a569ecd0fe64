package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/ports"
)

func testBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{
		BollingerPeriod:   3,
		BollingerStdDev:   1.0,
		WidthLookback:     4,
		SqueezePercentile: 50,
		VolumePeriod:      3,
		VolumeBreakoutMul: 2.0,
		RSIPeriod:         2,
		RSISafetyCeiling:  101, // the fixtures saturate RSI; safety is tested via trend
		ATRPeriod:         2,
	}
}

// squeezeCandles builds a dead-flat series: zero band width everywhere.
func squeezeCandles(n int) []*domain.Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = &domain.Candle{
			Symbol:    "BTCUSDT",
			Interval:  "1m",
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			CloseTime: base.Add(time.Duration(i+1) * time.Minute),
			Open:      10,
			High:      10.5,
			Low:       9.5,
			Close:     10,
			Volume:    100,
			IsFinal:   true,
		}
	}
	return out
}

// breakoutCandles is a squeeze whose final candle surges out of the
// upper band on heavy volume.
func breakoutCandles(n int) []*domain.Candle {
	out := squeezeCandles(n)
	last := out[n-1]
	last.Open = 10
	last.Close = 20
	last.High = 20.5
	last.Low = 9.8
	last.Volume = 1000
	return out
}

func TestBreakoutStrongBuy(t *testing.T) {
	scorer, err := NewBreakoutScorer(testBreakoutConfig(), &mockLogger{})
	require.NoError(t, err)

	pair := domain.NewScannedPair("BTCUSDT")
	pair.HourlyTrend = domain.TrendUp

	result, err := scorer.Evaluate(context.Background(), pair, breakoutCandles(8), domain.DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, domain.ScoreStrongBuy, result.Score)
	assert.InDelta(t, 9.5, result.StopHint, 1e-9, "stop hint must be the prior candle's low")
	assert.Greater(t, pair.RSI, 50.0)
	assert.InDelta(t, 20.0, pair.Price, 1e-9)
}

func TestBreakoutFakeOnWeakVolume(t *testing.T) {
	scorer, err := NewBreakoutScorer(testBreakoutConfig(), &mockLogger{})
	require.NoError(t, err)

	candleData := breakoutCandles(8)
	candleData[len(candleData)-1].Volume = 100 // no expansion vs the average

	pair := domain.NewScannedPair("BTCUSDT")
	pair.HourlyTrend = domain.TrendUp

	result, err := scorer.Evaluate(context.Background(), pair, candleData, domain.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreFakeBreakout, result.Score)
	assert.Zero(t, result.StopHint)
}

func TestBreakoutFakeOnHourlyDowntrend(t *testing.T) {
	scorer, err := NewBreakoutScorer(testBreakoutConfig(), &mockLogger{})
	require.NoError(t, err)

	pair := domain.NewScannedPair("BTCUSDT")
	pair.HourlyTrend = domain.TrendDown

	result, err := scorer.Evaluate(context.Background(), pair, breakoutCandles(8), domain.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreFakeBreakout, result.Score)
}

func TestBreakoutCompression(t *testing.T) {
	scorer, err := NewBreakoutScorer(testBreakoutConfig(), &mockLogger{})
	require.NoError(t, err)

	pair := domain.NewScannedPair("BTCUSDT")
	result, err := scorer.Evaluate(context.Background(), pair, squeezeCandles(8), domain.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreCompression, result.Score)
}

func TestBreakoutHoldAfterExpansion(t *testing.T) {
	scorer, err := NewBreakoutScorer(testBreakoutConfig(), &mockLogger{})
	require.NoError(t, err)

	// Width expands over the last two candles without a band break, so
	// the pair is neither squeezed nor breaking out.
	candleData := squeezeCandles(8)
	candleData[6].Close = 13
	candleData[6].High = 13.5
	candleData[6].Low = 9.5
	candleData[7].Close = 7
	candleData[7].High = 10.5
	candleData[7].Low = 6.5

	pair := domain.NewScannedPair("BTCUSDT")
	result, err := scorer.Evaluate(context.Background(), pair, candleData, domain.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreHold, result.Score)
}

func TestBreakoutInsufficientData(t *testing.T) {
	scorer, err := NewBreakoutScorer(testBreakoutConfig(), &mockLogger{})
	require.NoError(t, err)

	_, err = scorer.Evaluate(context.Background(), domain.NewScannedPair("BTCUSDT"), squeezeCandles(4), domain.DefaultSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInsufficientData)
}

func TestBreakoutDefaults(t *testing.T) {
	scorer, err := NewBreakoutScorer(BreakoutConfig{}, &mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, StrategyBreakout, scorer.Name())
	assert.Equal(t, 70, scorer.RequiredDataPoints(), "Bollinger period plus width lookback")

	_, err = NewBreakoutScorer(BreakoutConfig{}, nil)
	assert.Error(t, err)
}
