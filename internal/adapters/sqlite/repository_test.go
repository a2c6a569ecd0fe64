package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScannerBot/internal/domain"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLoadStateEmpty(t *testing.T) {
	repo := newTestRepo(t)
	state, err := repo.LoadState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state, "no persisted state reads back as nil")
}

func TestSaveAndLoadState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entryTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exitTime := entryTime.Add(3 * time.Hour)

	state := &domain.BotState{
		Balance:        9875.5,
		TradeIDCounter: 7,
		IsRunning:      true,
		TradingMode:    domain.ModeRealFeed,
		ActivePositions: []*domain.Position{
			{
				ID:              6,
				Symbol:          "BTCUSDT",
				Side:            domain.Buy,
				EntryPrice:      100,
				Quantity:        5,
				InitialQuantity: 10,
				StopLoss:        101,
				InitialStopLoss: 95,
				TakeProfit:      110,
				HighestPrice:    104,
				EntryTime:       entryTime,
				Status:          domain.StatusFilled,
				RealizedPNL:     10,
				AtBreakeven:     true,
				PartialTPHit:    true,
			},
		},
		TradeHistory: []*domain.Trade{
			{
				ID:          5,
				Symbol:      "ETHUSDT",
				EntryPrice:  2000,
				ExitPrice:   2100,
				Quantity:    0.5,
				PNL:         50,
				PNLPercent:  5,
				EntryTime:   entryTime,
				ExitTime:    exitTime,
				CloseReason: domain.CloseReasonTakeProfit,
			},
		},
	}
	require.NoError(t, repo.SaveState(ctx, state))

	loaded, err := repo.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.InDelta(t, 9875.5, loaded.Balance, 1e-9)
	assert.Equal(t, int64(7), loaded.TradeIDCounter)
	assert.True(t, loaded.IsRunning)
	assert.Equal(t, domain.ModeRealFeed, loaded.TradingMode)

	require.Len(t, loaded.ActivePositions, 1)
	pos := loaded.ActivePositions[0]
	assert.Equal(t, int64(6), pos.ID)
	assert.Equal(t, "BTCUSDT", pos.Symbol)
	assert.InDelta(t, 5.0, pos.Quantity, 1e-9)
	assert.InDelta(t, 10.0, pos.InitialQuantity, 1e-9)
	assert.InDelta(t, 95.0, pos.InitialStopLoss, 1e-9)
	assert.True(t, pos.EntryTime.Equal(entryTime))
	assert.Equal(t, domain.StatusFilled, pos.Status)
	assert.True(t, pos.AtBreakeven)
	assert.True(t, pos.PartialTPHit)

	require.Len(t, loaded.TradeHistory, 1)
	trade := loaded.TradeHistory[0]
	assert.Equal(t, int64(5), trade.ID)
	assert.InDelta(t, 50.0, trade.PNL, 1e-9)
	assert.True(t, trade.ExitTime.Equal(exitTime))
	assert.Equal(t, domain.CloseReasonTakeProfit, trade.CloseReason)
}

func TestSaveStateReplacesPositions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	state := &domain.BotState{
		Balance:     10000,
		TradingMode: domain.ModeSimulated,
		ActivePositions: []*domain.Position{
			{ID: 1, Symbol: "BTCUSDT", Side: domain.Buy, EntryPrice: 100, Quantity: 1,
				InitialQuantity: 1, StopLoss: 95, InitialStopLoss: 95, TakeProfit: 110,
				HighestPrice: 100, EntryTime: time.Now().UTC(), Status: domain.StatusFilled},
		},
	}
	require.NoError(t, repo.SaveState(ctx, state))

	// Close the position and save again: the positions table must
	// reflect the new aggregate, not accumulate rows.
	state.ActivePositions = nil
	require.NoError(t, repo.SaveState(ctx, state))

	loaded, err := repo.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.ActivePositions)
}

func candleAt(symbol, interval string, open time.Time, close float64) *domain.Candle {
	return &domain.Candle{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  open,
		CloseTime: open.Add(time.Hour),
		Open:      close - 1,
		High:      close + 1,
		Low:       close - 2,
		Close:     close,
		Volume:    100,
		IsFinal:   true,
	}
}

func TestCandlePersistence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	last, err := repo.LastOpenTime(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.True(t, last.IsZero(), "empty table yields the zero time")

	var batch []*domain.Candle
	for i := 0; i < 5; i++ {
		batch = append(batch, candleAt("BTCUSDT", "1h", base.Add(time.Duration(i)*time.Hour), float64(100+i)))
	}
	require.NoError(t, repo.SaveCandles(ctx, batch))

	last, err = repo.LastOpenTime(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, base.Add(4*time.Hour).UnixMilli(), last.UnixMilli())

	loaded, err := repo.LoadCandles(ctx, "BTCUSDT", "1h", 3)
	require.NoError(t, err)
	require.Len(t, loaded, 3, "limit keeps only the most recent candles")
	assert.InDelta(t, 102.0, loaded[0].Close, 1e-9)
	assert.InDelta(t, 104.0, loaded[2].Close, 1e-9)
	for i := 1; i < len(loaded); i++ {
		assert.True(t, loaded[i].OpenTime.After(loaded[i-1].OpenTime), "chronological order")
	}
}

func TestCandleUpsertOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	open := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveCandles(ctx, []*domain.Candle{candleAt("BTCUSDT", "1h", open, 100)}))
	require.NoError(t, repo.SaveCandles(ctx, []*domain.Candle{candleAt("BTCUSDT", "1h", open, 105)}))

	loaded, err := repo.LoadCandles(ctx, "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	require.Len(t, loaded, 1, "same open time must not duplicate")
	assert.InDelta(t, 105.0, loaded[0].Close, 1e-9)
}

func TestCandleSeriesAreIsolated(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	open := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveCandles(ctx, []*domain.Candle{
		candleAt("BTCUSDT", "1h", open, 100),
		candleAt("BTCUSDT", "1m", open, 101),
		candleAt("ETHUSDT", "1h", open, 2000),
	}))

	loaded, err := repo.LoadCandles(ctx, "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.InDelta(t, 100.0, loaded[0].Close, 1e-9)
}
