package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptoScannerBot/internal/candles"
	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/indicators"
	"cryptoScannerBot/internal/ports"
)

// DiscoveryResult is the per-symbol outcome of one discovery cycle,
// applied to the pair set at the engine's serialization point.
type DiscoveryResult struct {
	Symbol      string
	LastPrice   float64
	QuoteVolume float64
	Regime      domain.MarketRegime
	HourlyTrend domain.Trend
	Hydrated    bool // long-timeframe history loaded into the store
}

// DiscoveryConfig holds the static parameters of the discovery job.
type DiscoveryConfig struct {
	QuoteAsset     string // e.g. "USDT"; symbols must carry this suffix
	RegimeInterval string // long timeframe for regime classification, e.g. "1h"
	FastMAPeriod   int    // e.g. 20
	SlowMAPeriod   int    // e.g. 50
	ADXPeriod      int    // gate for the longer-horizon trend flag
	MinADXStrength float64
	CandleLimit    int // history window per symbol, capped at the store bound
}

// Discovery periodically refreshes the monitored-pair universe from
// the exchange ticker snapshot and hydrates long-timeframe candle
// history, persisting it so re-runs fetch only the incremental window.
type Discovery struct {
	cfg        DiscoveryConfig
	logger     ports.Logger
	exchange   ports.MarketDataClient
	candleRepo ports.CandleRepository
	store      *candles.Store
}

// NewDiscovery creates the discovery job.
func NewDiscovery(cfg DiscoveryConfig, logger ports.Logger, exchange ports.MarketDataClient, candleRepo ports.CandleRepository, store *candles.Store) (*Discovery, error) {
	if logger == nil || exchange == nil || candleRepo == nil || store == nil {
		return nil, fmt.Errorf("missing required dependencies for discovery")
	}
	if cfg.QuoteAsset == "" {
		return nil, fmt.Errorf("discovery quote asset must be set")
	}
	if cfg.FastMAPeriod <= 0 || cfg.SlowMAPeriod <= 0 || cfg.FastMAPeriod >= cfg.SlowMAPeriod {
		return nil, fmt.Errorf("discovery MA periods invalid (fast=%d slow=%d)", cfg.FastMAPeriod, cfg.SlowMAPeriod)
	}
	if cfg.RegimeInterval == "" {
		cfg.RegimeInterval = "1h"
	}
	if cfg.ADXPeriod <= 0 {
		cfg.ADXPeriod = indicators.DefaultADXPeriod
	}
	if cfg.MinADXStrength <= 0 {
		cfg.MinADXStrength = 25
	}
	if cfg.CandleLimit <= 0 || cfg.CandleLimit > candles.MaxSeriesLength {
		cfg.CandleLimit = candles.MaxSeriesLength
	}
	return &Discovery{cfg: cfg, logger: logger, exchange: exchange, candleRepo: candleRepo, store: store}, nil
}

// Scan runs one discovery cycle: ticker snapshot, volume/exclusion
// filtering, candle hydration and regime classification. A failure of
// the snapshot fetch aborts the whole cycle (the previous monitored
// set stays intact); a failure for one symbol excludes only that
// symbol.
func (d *Discovery) Scan(ctx context.Context, settings *domain.BotSettings) ([]DiscoveryResult, error) {
	tickers, err := d.exchange.GetTickerSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("ticker snapshot fetch failed: %w", err)
	}

	results := make([]DiscoveryResult, 0, 32)
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, d.cfg.QuoteAsset) {
			continue
		}
		if t.QuoteVolume < settings.MinVolumeUSD {
			continue
		}
		if settings.Excluded(t.Symbol) {
			continue
		}

		res := DiscoveryResult{
			Symbol:      t.Symbol,
			LastPrice:   t.LastPrice,
			QuoteVolume: t.QuoteVolume,
			Regime:      domain.RegimeNeutral,
			HourlyTrend: domain.TrendNeutral,
		}

		if err := d.hydrate(ctx, t.Symbol); err != nil {
			d.logger.Warn(ctx, "Symbol excluded for this cycle, candle fetch failed", map[string]interface{}{
				"category": ports.LogCategoryScanner,
				"symbol":   t.Symbol,
				"error":    err.Error(),
			})
			continue
		}
		res.Hydrated = true

		history := d.store.Get(t.Symbol, d.cfg.RegimeInterval)
		res.Regime, res.HourlyTrend = d.classify(history)
		results = append(results, res)
	}

	d.logger.Info(ctx, "Discovery cycle complete", map[string]interface{}{
		"category": ports.LogCategoryScanner,
		"tickers":  len(tickers),
		"admitted": len(results),
	})
	return results, nil
}

// hydrate loads the long-timeframe history for a symbol: only the
// window after the last persisted open time is fetched, then persisted
// and seeded into the in-memory store.
func (d *Discovery) hydrate(ctx context.Context, symbol string) error {
	last, err := d.candleRepo.LastOpenTime(ctx, symbol, d.cfg.RegimeInterval)
	if err != nil {
		return fmt.Errorf("last open time lookup: %w", err)
	}

	var startTime time.Time
	if !last.IsZero() {
		startTime = last.Add(time.Millisecond)
	}
	fetched, err := d.exchange.GetKlines(ctx, symbol, d.cfg.RegimeInterval, startTime, d.cfg.CandleLimit)
	if err != nil {
		return fmt.Errorf("kline fetch: %w", err)
	}

	if len(fetched) > 0 {
		if err := d.candleRepo.SaveCandles(ctx, fetched); err != nil {
			return fmt.Errorf("candle persist: %w", err)
		}
	}

	if d.store.Len(symbol, d.cfg.RegimeInterval) == 0 && !last.IsZero() {
		// Fresh process with persisted history: reload the stored window
		// so the regime classification has its full context.
		stored, err := d.candleRepo.LoadCandles(ctx, symbol, d.cfg.RegimeInterval, d.cfg.CandleLimit)
		if err != nil {
			return fmt.Errorf("candle load: %w", err)
		}
		d.store.Seed(stored)
	}
	d.store.Seed(fetched)
	return nil
}

// classify derives the market regime from a fast/slow MA crossover and
// the ADX-gated longer-horizon trend flag.
func (d *Discovery) classify(history []*domain.Candle) (domain.MarketRegime, domain.Trend) {
	fast, errFast := indicators.SMA(history, d.cfg.FastMAPeriod)
	slow, errSlow := indicators.SMA(history, d.cfg.SlowMAPeriod)
	if errFast != nil || errSlow != nil {
		return domain.RegimeNeutral, domain.TrendNeutral
	}

	regime := domain.RegimeNeutral
	switch {
	case fast > slow:
		regime = domain.RegimeUptrend
	case fast < slow:
		regime = domain.RegimeDowntrend
	}

	trend := domain.TrendNeutral
	adx, err := indicators.ADX(history, d.cfg.ADXPeriod)
	if err == nil && adx > d.cfg.MinADXStrength {
		switch regime {
		case domain.RegimeUptrend:
			trend = domain.TrendUp
		case domain.RegimeDowntrend:
			trend = domain.TrendDown
		}
	}
	return regime, trend
}
