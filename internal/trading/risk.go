package trading

import "cryptoScannerBot/internal/domain"

// positionCost returns the quote-currency cost to allocate to a new
// position: a flat percentage of balance, bumped for STRONG_BUY when
// dynamic sizing is enabled.
func positionCost(balance float64, score domain.Score, s *domain.BotSettings) float64 {
	pct := s.PositionSizePct
	if s.UseDynamicSizing && score == domain.ScoreStrongBuy && s.StrongBuySizePct > pct {
		pct = s.StrongBuySizePct
	}
	return balance * pct / 100
}

// entryStopLoss picks the stop for a new position. The computed stop
// is ATR-based when enabled, else the strategy's structural hint. The
// percentage stop acts as a maximum-risk ceiling: a computed stop
// wider than it is replaced by it.
func entryStopLoss(entry, atr, structuralHint float64, s *domain.BotSettings) float64 {
	pctStop := entry * (1 - s.StopLossPct/100)

	computed := 0.0
	if s.UseATRStopLoss && atr > 0 {
		computed = entry - atr*s.ATRMultiplier
	} else if structuralHint > 0 {
		computed = structuralHint
	}

	if computed <= 0 || computed < pctStop {
		return pctStop
	}
	return computed
}

// entryTakeProfit returns the target price for a new position.
func entryTakeProfit(entry float64, s *domain.BotSettings) float64 {
	return entry * (1 + s.TakeProfitPct/100)
}

// entryPrice applies slippage on top of the observed price in
// real-feed simulation mode.
func entryPrice(observed float64, mode domain.TradingMode, s *domain.BotSettings) float64 {
	if mode == domain.ModeRealFeed && s.SlippagePct > 0 {
		return observed * (1 + s.SlippagePct/100)
	}
	return observed
}
