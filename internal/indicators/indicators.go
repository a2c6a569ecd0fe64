// Package indicators provides stateless technical-indicator
// calculations over ordered candle slices. Every function returns a
// non-nil error when the input is shorter than the minimum required
// length; the zero value returned alongside it is never a reading and
// callers must treat the error as "indicator not yet available".
package indicators

import (
	"fmt"
	"math"

	"cryptoScannerBot/internal/domain"
)

// Default periods used across the scoring pipeline.
const (
	DefaultRSIPeriod       = 14
	DefaultADXPeriod       = 14
	DefaultATRPeriod       = 14
	DefaultTrendSMAPeriod  = 20
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
)

// Closes extracts the close prices of a candle slice.
func Closes(candles []*domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SMA computes the Simple Moving Average of the last period closes.
func SMA(candles []*domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("SMA period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(candles), period)
	}
	total := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		total += candles[i].Close
	}
	return total / float64(period), nil
}

// VolumeSMA computes the Simple Moving Average of the last period volumes.
func VolumeSMA(candles []*domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("volume SMA period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate volume SMA for period %d", len(candles), period)
	}
	total := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		total += candles[i].Volume
	}
	return total / float64(period), nil
}

// EMA computes the Exponential Moving Average, seeded with the SMA of
// the first period closes.
func EMA(candles []*domain.Candle, period int) (float64, error) {
	series, err := emaSeries(Closes(candles), period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// emaSeries returns the EMA at every index from period-1 onward.
func emaSeries(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("EMA period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, fmt.Errorf("not enough data (%d) to calculate EMA for period %d", len(values), period)
	}
	multiplier := 2.0 / float64(period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)

	series := make([]float64, 0, len(values)-period+1)
	series = append(series, seed)
	ema := seed
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		series = append(series, ema)
	}
	return series, nil
}

// RSI computes the Relative Strength Index using Wilder's smoothing.
func RSI(candles []*domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("RSI period must be positive, got %d", period)
	}
	if len(candles) <= period {
		return 0, fmt.Errorf("not enough data (%d) to calculate RSI for period %d", len(candles), period)
	}

	changes := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		changes = append(changes, candles[i].Close-candles[i-1].Close)
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		if changes[i] > 0 {
			avgGain += changes[i]
		} else {
			avgLoss -= changes[i]
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(changes); i++ {
		if changes[i] > 0 {
			avgGain = (avgGain*float64(period-1) + changes[i]) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - changes[i]) / float64(period)
		}
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil // neutral if no change
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	return math.Min(100, math.Max(0, rsi)), nil
}

// ATR computes the Average True Range using Wilder's smoothing.
func ATR(candles []*domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("ATR period must be positive, got %d", period)
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("not enough data (%d) to calculate ATR for period %d", len(candles), period)
	}

	trueRanges := trueRanges(candles)

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}
	return atr, nil
}

func trueRanges(candles []*domain.Candle) []float64 {
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close
		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		out = append(out, tr)
	}
	return out
}

// ADX computes the Average Directional Index using Wilder's method.
// Needs at least 2*period+1 candles.
func ADX(candles []*domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("ADX period must be positive, got %d", period)
	}
	if len(candles) < 2*period+1 {
		return 0, fmt.Errorf("not enough data (%d) to calculate ADX for period %d", len(candles), period)
	}

	trs := trueRanges(candles)
	plusDM := make([]float64, len(trs))
	minusDM := make([]float64, len(trs))
	for i := 1; i < len(candles); i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	var trSum, plusSum, minusSum float64
	for i := 0; i < period; i++ {
		trSum += trs[i]
		plusSum += plusDM[i]
		minusSum += minusDM[i]
	}

	dxValues := make([]float64, 0, len(trs)-period)
	for i := period; i < len(trs); i++ {
		trSum = trSum - trSum/float64(period) + trs[i]
		plusSum = plusSum - plusSum/float64(period) + plusDM[i]
		minusSum = minusSum - minusSum/float64(period) + minusDM[i]

		if trSum == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		plusDI := 100 * plusSum / trSum
		minusDI := 100 * minusSum / trSum
		diSum := plusDI + minusDI
		if diSum == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		dxValues = append(dxValues, 100*math.Abs(plusDI-minusDI)/diSum)
	}

	adx := 0.0
	for i := 0; i < period; i++ {
		adx += dxValues[i]
	}
	adx /= float64(period)
	for i := period; i < len(dxValues); i++ {
		adx = (adx*float64(period-1) + dxValues[i]) / float64(period)
	}
	return adx, nil
}

// BollingerBands computes the middle SMA band plus upper and lower
// bands at stdDevMult population standard deviations.
func BollingerBands(candles []*domain.Candle, period int, stdDevMult float64) (upper, middle, lower float64, err error) {
	middle, err = SMA(candles, period)
	if err != nil {
		return 0, 0, 0, err
	}
	window := Closes(candles[len(candles)-period:])
	sd := StdDev(window)
	return middle + stdDevMult*sd, middle, middle - stdDevMult*sd, nil
}

// MACD computes the Moving Average Convergence Divergence line, its
// signal line and the histogram. Needs at least slow+signal-1 candles.
func MACD(candles []*domain.Candle, fast, slow, signal int) (macd, signalLine, histogram float64, err error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return 0, 0, 0, fmt.Errorf("MACD periods must be positive (fast=%d slow=%d signal=%d)", fast, slow, signal)
	}
	if fast >= slow {
		return 0, 0, 0, fmt.Errorf("MACD fast period %d must be less than slow period %d", fast, slow)
	}
	if len(candles) < slow+signal-1 {
		return 0, 0, 0, fmt.Errorf("not enough data (%d) to calculate MACD(%d,%d,%d)", len(candles), fast, slow, signal)
	}

	closes := Closes(candles)
	fastSeries, err := emaSeries(closes, fast)
	if err != nil {
		return 0, 0, 0, err
	}
	slowSeries, err := emaSeries(closes, slow)
	if err != nil {
		return 0, 0, 0, err
	}

	// Align the two series on the slow EMA's start.
	offset := slow - fast
	macdSeries := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdSeries[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries, err := emaSeries(macdSeries, signal)
	if err != nil {
		return 0, 0, 0, err
	}

	macd = macdSeries[len(macdSeries)-1]
	signalLine = signalSeries[len(signalSeries)-1]
	return macd, signalLine, macd - signalLine, nil
}

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

// Volatility reports (stddev(closes) / mean(closes)) * 100 over the
// last period closes, guarded against a zero mean.
func Volatility(candles []*domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("volatility period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate volatility for period %d", len(candles), period)
	}
	window := Closes(candles[len(candles)-period:])
	mean := Mean(window)
	if mean == 0 {
		return 0, nil
	}
	return StdDev(window) / mean * 100, nil
}
