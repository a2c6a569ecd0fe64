package domain

import "time"

// Candle represents a single OHLCV candlestick.
type Candle struct {
	Symbol    string    // Trading symbol
	Interval  string    // Candle interval (e.g., "1m", "1h")
	OpenTime  time.Time // Start time of the interval (exchange-assigned)
	CloseTime time.Time // End time of the interval
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume
	IsFinal   bool      // Whether this candle is closed for its interval
}
