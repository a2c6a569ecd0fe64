package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScannerBot/internal/domain"
)

func tradeWithPNL(id int64, pnl float64, held time.Duration) *domain.Trade {
	entry := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * 24 * time.Hour)
	return &domain.Trade{
		ID:        id,
		Symbol:    "BTCUSDT",
		PNL:       pnl,
		EntryTime: entry,
		ExitTime:  entry.Add(held),
	}
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	s := Analyze(nil)
	require.NotNil(t, s)
	assert.Zero(t, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.MaxDrawdown)
}

func TestAnalyze(t *testing.T) {
	trades := []*domain.Trade{
		tradeWithPNL(1, 100, time.Hour),
		tradeWithPNL(2, -50, 2*time.Hour),
		tradeWithPNL(3, 200, 3*time.Hour),
		tradeWithPNL(4, -150, 2*time.Hour),
	}

	s := Analyze(trades)

	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 2, s.WinningTrades)
	assert.Equal(t, 2, s.LosingTrades)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)
	assert.InDelta(t, 100.0, s.TotalPNL, 1e-9)
	assert.InDelta(t, 1.5, s.ProfitFactor, 1e-9, "300 gross profit over 200 gross loss")
	assert.InDelta(t, 150.0, s.AverageWin, 1e-9)
	assert.InDelta(t, 100.0, s.AverageLoss, 1e-9)
	assert.InDelta(t, 200.0, s.BestTradePNL, 1e-9)
	assert.InDelta(t, -150.0, s.WorstTradePNL, 1e-9)
	assert.Equal(t, 2*time.Hour, s.AverageDuration)
	assert.InDelta(t, 150.0, s.MaxDrawdown, 1e-9, "peak 250 after trade three, trough 100")
}

func TestAnalyzeAllWinners(t *testing.T) {
	s := Analyze([]*domain.Trade{
		tradeWithPNL(1, 10, time.Hour),
		tradeWithPNL(2, 20, time.Hour),
	})

	assert.InDelta(t, 100.0, s.WinRate, 1e-9)
	assert.Zero(t, s.ProfitFactor, "undefined without losses")
	assert.Zero(t, s.AverageLoss)
	assert.Zero(t, s.MaxDrawdown)
}
