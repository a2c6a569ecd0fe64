package ports

import (
	"context"
	"time"

	"cryptoScannerBot/internal/domain"
)

// TickerStat is the 24h summary for one symbol from the exchange
// snapshot endpoint.
type TickerStat struct {
	Symbol      string
	LastPrice   float64
	QuoteVolume float64
}

// MarketDataClient defines the market-data surface the core relies on.
// Connection management and reconnection live behind this boundary.
type MarketDataClient interface {
	// GetTickerSnapshot retrieves the 24h ticker summary for all symbols.
	GetTickerSnapshot(ctx context.Context) ([]TickerStat, error)

	// GetKlines retrieves historical candles for a symbol and interval.
	// A zero startTime means "most recent window"; limit caps the count.
	GetKlines(ctx context.Context, symbol, interval string, startTime time.Time, limit int) ([]*domain.Candle, error)

	// StreamKlines starts a combined candle stream for the given symbols.
	// The handler receives every candle event, open and closed; callers
	// filter on IsFinal. Returns channels to observe and stop the stream.
	StreamKlines(ctx context.Context, symbols []string, interval string, handler func(candle *domain.Candle), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)

	// StreamTrades starts a combined trade-price stream for the given
	// symbols, delivering (symbol, price) ticks.
	StreamTrades(ctx context.Context, symbols []string, handler func(symbol string, price float64), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)

	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error
}
