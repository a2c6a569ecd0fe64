package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cryptoScannerBot/internal/domain"
)

func TestPositionCost(t *testing.T) {
	s := domain.DefaultSettings()
	s.PositionSizePct = 10
	s.StrongBuySizePct = 15
	s.UseDynamicSizing = true

	assert.InDelta(t, 1000.0, positionCost(10_000, domain.ScoreBuy, s), 1e-9)
	assert.InDelta(t, 1500.0, positionCost(10_000, domain.ScoreStrongBuy, s), 1e-9)

	s.UseDynamicSizing = false
	assert.InDelta(t, 1000.0, positionCost(10_000, domain.ScoreStrongBuy, s), 1e-9)
}

func TestEntryStopLoss(t *testing.T) {
	tests := []struct {
		name  string
		atr   float64
		hint  float64
		setup func(s *domain.BotSettings)
		want  float64
	}{
		{
			name: "ATR stop inside the percentage ceiling",
			atr:  2,
			setup: func(s *domain.BotSettings) {
				s.UseATRStopLoss = true
				s.ATRMultiplier = 1.5
			},
			want: 97, // 100 - 2*1.5
		},
		{
			name: "wide ATR stop capped at the percentage stop",
			atr:  10,
			setup: func(s *domain.BotSettings) {
				s.UseATRStopLoss = true
				s.ATRMultiplier = 1.5
			},
			want: 95, // ATR stop of 85 is deeper than 5% max risk
		},
		{
			name: "structural hint used when ATR disabled",
			hint: 98,
			setup: func(s *domain.BotSettings) {
				s.UseATRStopLoss = false
			},
			want: 98,
		},
		{
			name: "percentage fallback with nothing else",
			setup: func(s *domain.BotSettings) {
				s.UseATRStopLoss = false
			},
			want: 95,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.DefaultSettings()
			s.StopLossPct = 5
			tt.setup(s)
			assert.InDelta(t, tt.want, entryStopLoss(100, tt.atr, tt.hint, s), 1e-9)
		})
	}
}

func TestEntryTakeProfit(t *testing.T) {
	s := domain.DefaultSettings()
	s.TakeProfitPct = 4
	assert.InDelta(t, 104.0, entryTakeProfit(100, s), 1e-9)
}

func TestEntryPrice(t *testing.T) {
	s := domain.DefaultSettings()
	s.SlippagePct = 0.1

	assert.InDelta(t, 100.0, entryPrice(100, domain.ModeSimulated, s), 1e-9)
	assert.InDelta(t, 100.1, entryPrice(100, domain.ModeRealFeed, s), 1e-9)

	s.SlippagePct = 0
	assert.InDelta(t, 100.0, entryPrice(100, domain.ModeRealFeed, s), 1e-9)
}
