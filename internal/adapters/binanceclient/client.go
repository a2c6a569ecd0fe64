// Package binanceclient adapts the go-binance spot client to the
// ports.MarketDataClient contract: 24h ticker snapshots, historical
// klines and reconnecting combined WebSocket streams.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/ports"
)

// Client implements ports.MarketDataClient using the go-binance library.
type Client struct {
	api                  *binance.Client
	logger               ports.Logger
	requestTimeout       time.Duration
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// Config holds configuration specific to the Binance adapter. Keys are
// optional; every endpoint the core uses is public.
type Config struct {
	APIKey               string
	SecretKey            string
	Logger               ports.Logger
	RequestTimeout       time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// New creates a new Binance market-data adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Client{
		api:                  binance.NewClient(cfg.APIKey, cfg.SecretKey),
		logger:               cfg.Logger,
		requestTimeout:       requestTimeout,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
	}, nil
}

// handleError translates Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"category": ports.LogCategoryFeed, "operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		var mappedErr error
		switch apiErr.Code {
		case -1003:
			mappedErr = ports.ErrRateLimited
		case -1021:
			mappedErr = ports.ErrTimeout
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1121:
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrExchangeUnavailable
		}
		c.logger.Error(ctx, err, operation+" failed with API error", fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"),
		strings.Contains(err.Error(), "use of closed network connection"):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}
	c.logger.Error(ctx, err, operation+" failed", fields)
	return finalErr
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	if err := c.api.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	return nil
}

// GetTickerSnapshot retrieves the 24h price-change summary for every
// symbol. A malformed row (unparseable price or volume) fails the
// whole snapshot so callers never act on partially-parsed data.
func (c *Client) GetTickerSnapshot(ctx context.Context) ([]ports.TickerStat, error) {
	op := "GetTickerSnapshot"
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	stats, err := c.api.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := make([]ports.TickerStat, 0, len(stats))
	for _, s := range stats {
		lastPrice, err := strconv.ParseFloat(s.LastPrice, 64)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("%w: last price %q for %s: %v", ports.ErrMalformedResponse, s.LastPrice, s.Symbol, err), op)
		}
		quoteVolume, err := strconv.ParseFloat(s.QuoteVolume, 64)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("%w: quote volume %q for %s: %v", ports.ErrMalformedResponse, s.QuoteVolume, s.Symbol, err), op)
		}
		out = append(out, ports.TickerStat{Symbol: s.Symbol, LastPrice: lastPrice, QuoteVolume: quoteVolume})
	}
	return out, nil
}

// GetKlines retrieves historical candles for a symbol and interval,
// optionally from startTime onward.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, startTime time.Time, limit int) ([]*domain.Candle, error) {
	op := "GetKlines"
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	svc := c.api.NewKlinesService().Symbol(symbol).Interval(interval)
	if limit > 0 {
		svc = svc.Limit(limit)
	}
	if !startTime.IsZero() {
		svc = svc.StartTime(startTime.UnixMilli())
	}

	raw, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := make([]*domain.Candle, 0, len(raw))
	for _, k := range raw {
		candle, err := translateKline(symbol, interval, k)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		out = append(out, candle)
	}
	return out, nil
}

// StreamKlines starts a combined candle stream for the given symbols,
// reconnecting with exponential backoff and jitter until the context
// ends or the attempt budget is spent.
func (c *Client) StreamKlines(ctx context.Context, symbols []string, interval string, handler func(candle *domain.Candle), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	op := "StreamKlines"
	pairs := make(map[string]string, len(symbols))
	for _, s := range symbols {
		pairs[s] = interval
	}
	connect := func(wrappedErr binance.ErrHandler) (chan struct{}, chan struct{}, error) {
		return binance.WsCombinedKlineServe(pairs, func(event *binance.WsKlineEvent) {
			candle, err := translateWsKline(event)
			if err != nil {
				c.logger.Error(ctx, err, op+": failed to translate kline event", map[string]interface{}{"category": ports.LogCategoryFeed})
				return
			}
			handler(candle)
		}, wrappedErr)
	}
	return c.serveWithReconnect(ctx, op, connect, errHandler)
}

// StreamTrades starts a combined aggregated-trade stream delivering
// (symbol, price) ticks.
func (c *Client) StreamTrades(ctx context.Context, symbols []string, handler func(symbol string, price float64), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	op := "StreamTrades"
	connect := func(wrappedErr binance.ErrHandler) (chan struct{}, chan struct{}, error) {
		return binance.WsCombinedAggTradeServe(symbols, func(event *binance.WsAggTradeEvent) {
			price, err := strconv.ParseFloat(event.Price, 64)
			if err != nil {
				c.logger.Error(ctx, err, op+": failed to parse trade price", map[string]interface{}{"category": ports.LogCategoryFeed, "symbol": event.Symbol})
				return
			}
			handler(event.Symbol, price)
		}, wrappedErr)
	}
	return c.serveWithReconnect(ctx, op, connect, errHandler)
}

// serveWithReconnect owns the reconnection loop shared by both stream
// kinds. The returned doneCh closes when the loop gives up or the
// context ends; stopCh stops the stream on demand.
func (c *Client) serveWithReconnect(ctx context.Context, op string, connect func(binance.ErrHandler) (chan struct{}, chan struct{}, error), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	doneCh := make(chan struct{})
	stopCh := make(chan struct{})

	wrappedErrHandler := func(err error) {
		translated := c.handleError(ctx, err, op+" WebSocket")
		if errHandler != nil {
			errHandler(translated)
		}
	}

	go func() {
		defer close(doneCh)
		attempt := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			default:
			}

			innerDone, innerStop, connectErr := connect(wrappedErrHandler)
			if connectErr == nil {
				attempt = 0
				c.logger.Info(ctx, op+": stream connected", map[string]interface{}{"category": ports.LogCategoryFeed})
				select {
				case <-innerDone:
					c.logger.Warn(ctx, op+": stream dropped, reconnecting", map[string]interface{}{"category": ports.LogCategoryFeed})
				case <-stopCh:
					close(innerStop)
					return
				case <-ctx.Done():
					close(innerStop)
					return
				}
			} else {
				c.handleError(ctx, connectErr, op+" connection attempt")
			}

			attempt++
			if attempt >= c.maxReconnectAttempts {
				c.logger.Error(ctx, connectErr, op+": max reconnection attempts exceeded, giving up", map[string]interface{}{
					"category":    ports.LogCategoryFeed,
					"maxAttempts": c.maxReconnectAttempts,
				})
				return
			}

			delay := c.reconnectDelay * time.Duration(1<<uint(attempt-1))
			jitter := time.Duration(float64(delay) * 0.1)
			select {
			case <-time.After(delay + jitter):
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return doneCh, stopCh, nil
}

func translateKline(symbol, interval string, k *binance.Kline) (*domain.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ports.ErrMalformedResponse, k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: high %q: %v", ports.ErrMalformedResponse, k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: low %q: %v", ports.ErrMalformedResponse, k.Low, err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: close %q: %v", ports.ErrMalformedResponse, k.Close, err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: volume %q: %v", ports.ErrMalformedResponse, k.Volume, err)
	}
	return &domain.Candle{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  time.UnixMilli(k.OpenTime),
		CloseTime: time.UnixMilli(k.CloseTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		IsFinal:   true, // historical klines are closed by definition
	}, nil
}

func translateWsKline(event *binance.WsKlineEvent) (*domain.Candle, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil kline event", ports.ErrMalformedResponse)
	}
	k := event.Kline
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ports.ErrMalformedResponse, k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: high %q: %v", ports.ErrMalformedResponse, k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: low %q: %v", ports.ErrMalformedResponse, k.Low, err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: close %q: %v", ports.ErrMalformedResponse, k.Close, err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: volume %q: %v", ports.ErrMalformedResponse, k.Volume, err)
	}
	return &domain.Candle{
		Symbol:    event.Symbol,
		Interval:  k.Interval,
		OpenTime:  time.UnixMilli(k.StartTime),
		CloseTime: time.UnixMilli(k.EndTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		IsFinal:   k.IsFinal,
	}, nil
}
