package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScannerBot/internal/candles"
	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/ports"
)

// mockExchange implements ports.MarketDataClient for discovery tests.
type mockExchange struct {
	tickers     []ports.TickerStat
	tickersErr  error
	klines      map[string][]*domain.Candle
	klinesErr   map[string]error
	klineStarts map[string]time.Time
}

func (m *mockExchange) GetTickerSnapshot(ctx context.Context) ([]ports.TickerStat, error) {
	return m.tickers, m.tickersErr
}

func (m *mockExchange) GetKlines(ctx context.Context, symbol, interval string, startTime time.Time, limit int) ([]*domain.Candle, error) {
	if m.klineStarts == nil {
		m.klineStarts = make(map[string]time.Time)
	}
	m.klineStarts[symbol] = startTime
	if err := m.klinesErr[symbol]; err != nil {
		return nil, err
	}
	return m.klines[symbol], nil
}

func (m *mockExchange) StreamKlines(ctx context.Context, symbols []string, interval string, handler func(candle *domain.Candle), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	return make(chan struct{}), make(chan struct{}), nil
}

func (m *mockExchange) StreamTrades(ctx context.Context, symbols []string, handler func(symbol string, price float64), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	return make(chan struct{}), make(chan struct{}), nil
}

func (m *mockExchange) Ping(ctx context.Context) error { return nil }

// mockCandleRepo implements ports.CandleRepository in memory.
type mockCandleRepo struct {
	saved    []*domain.Candle
	lastOpen map[string]time.Time
	stored   map[string][]*domain.Candle
}

func (m *mockCandleRepo) SaveCandles(ctx context.Context, cs []*domain.Candle) error {
	m.saved = append(m.saved, cs...)
	return nil
}

func (m *mockCandleRepo) LastOpenTime(ctx context.Context, symbol, interval string) (time.Time, error) {
	return m.lastOpen[symbol], nil
}

func (m *mockCandleRepo) LoadCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	return m.stored[symbol], nil
}

func hourlyRising(symbol string, n int) []*domain.Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Candle, n)
	for i := 0; i < n; i++ {
		c := float64(100 + i)
		out[i] = &domain.Candle{
			Symbol:    symbol,
			Interval:  "1h",
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Open:      c - 1,
			High:      c + 0.5,
			Low:       c - 1.5,
			Close:     c,
			Volume:    100,
			IsFinal:   true,
		}
	}
	return out
}

func testDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		QuoteAsset:     "USDT",
		RegimeInterval: "1h",
		FastMAPeriod:   2,
		SlowMAPeriod:   4,
		ADXPeriod:      2,
		MinADXStrength: 25,
	}
}

func TestDiscoveryFiltersAndClassifies(t *testing.T) {
	exchange := &mockExchange{
		tickers: []ports.TickerStat{
			{Symbol: "BTCUSDT", LastPrice: 100, QuoteVolume: 5_000_000},
			{Symbol: "ETHBTC", LastPrice: 0.05, QuoteVolume: 9_000_000},  // wrong quote asset
			{Symbol: "DOGEUSDT", LastPrice: 0.1, QuoteVolume: 10_000},   // volume too thin
			{Symbol: "SHIBUSDT", LastPrice: 0.001, QuoteVolume: 2_000_000}, // excluded
		},
		klines: map[string][]*domain.Candle{
			"BTCUSDT": hourlyRising("BTCUSDT", 10),
		},
	}
	repo := &mockCandleRepo{}
	store := candles.NewStore()

	d, err := NewDiscovery(testDiscoveryConfig(), &mockLogger{}, exchange, repo, store)
	require.NoError(t, err)

	settings := domain.DefaultSettings()
	settings.ExcludedPairs = "SHIBUSDT"

	results, err := d.Scan(context.Background(), settings)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, "BTCUSDT", res.Symbol)
	assert.True(t, res.Hydrated)
	assert.Equal(t, domain.RegimeUptrend, res.Regime, "rising closes put fast MA above slow MA")
	assert.Equal(t, domain.TrendUp, res.HourlyTrend, "a saturated ADX confirms the trend")

	assert.Len(t, repo.saved, 10, "fetched candles must be persisted")
	assert.Equal(t, 10, store.Len("BTCUSDT", "1h"), "fetched candles must seed the store")
}

func TestDiscoverySnapshotFailureAbortsCycle(t *testing.T) {
	exchange := &mockExchange{tickersErr: errors.New("boom")}
	d, err := NewDiscovery(testDiscoveryConfig(), &mockLogger{}, exchange, &mockCandleRepo{}, candles.NewStore())
	require.NoError(t, err)

	results, err := d.Scan(context.Background(), domain.DefaultSettings())
	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestDiscoveryExcludesSymbolOnFetchFailure(t *testing.T) {
	exchange := &mockExchange{
		tickers: []ports.TickerStat{
			{Symbol: "BTCUSDT", LastPrice: 100, QuoteVolume: 5_000_000},
			{Symbol: "ETHUSDT", LastPrice: 2000, QuoteVolume: 5_000_000},
		},
		klines: map[string][]*domain.Candle{
			"BTCUSDT": hourlyRising("BTCUSDT", 10),
		},
		klinesErr: map[string]error{"ETHUSDT": errors.New("rate limited")},
	}
	log := &mockLogger{}
	d, err := NewDiscovery(testDiscoveryConfig(), log, exchange, &mockCandleRepo{}, candles.NewStore())
	require.NoError(t, err)

	results, err := d.Scan(context.Background(), domain.DefaultSettings())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "BTCUSDT", results[0].Symbol)
	assert.NotEmpty(t, log.warnMsgs, "the excluded symbol must be logged")
}

func TestDiscoveryDeltaFetch(t *testing.T) {
	last := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	exchange := &mockExchange{
		tickers: []ports.TickerStat{{Symbol: "BTCUSDT", LastPrice: 100, QuoteVolume: 5_000_000}},
		klines:  map[string][]*domain.Candle{"BTCUSDT": nil},
	}
	repo := &mockCandleRepo{
		lastOpen: map[string]time.Time{"BTCUSDT": last},
		stored:   map[string][]*domain.Candle{"BTCUSDT": hourlyRising("BTCUSDT", 10)},
	}
	store := candles.NewStore()

	d, err := NewDiscovery(testDiscoveryConfig(), &mockLogger{}, exchange, repo, store)
	require.NoError(t, err)

	_, err = d.Scan(context.Background(), domain.DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, last.Add(time.Millisecond), exchange.klineStarts["BTCUSDT"],
		"fetch must resume just after the newest persisted candle")
	assert.Equal(t, 10, store.Len("BTCUSDT", "1h"),
		"a fresh process must reload the stored window")
	assert.Empty(t, repo.saved, "nothing new to persist")
}

func TestDiscoveryConfigValidation(t *testing.T) {
	cfg := testDiscoveryConfig()
	cfg.QuoteAsset = ""
	_, err := NewDiscovery(cfg, &mockLogger{}, &mockExchange{}, &mockCandleRepo{}, candles.NewStore())
	assert.Error(t, err)

	cfg = testDiscoveryConfig()
	cfg.FastMAPeriod = 50
	cfg.SlowMAPeriod = 20
	_, err = NewDiscovery(cfg, &mockLogger{}, &mockExchange{}, &mockCandleRepo{}, candles.NewStore())
	assert.Error(t, err)

	_, err = NewDiscovery(testDiscoveryConfig(), nil, &mockExchange{}, &mockCandleRepo{}, candles.NewStore())
	assert.Error(t, err)
}
