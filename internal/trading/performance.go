package trading

import (
	"math"
	"time"

	"cryptoScannerBot/internal/domain"
)

// PerformanceSummary holds aggregate statistics over the closed trade
// history, published with status updates.
type PerformanceSummary struct {
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	WinRate         float64
	TotalPNL        float64
	ProfitFactor    float64
	AverageWin      float64
	AverageLoss     float64
	MaxDrawdown     float64
	AverageDuration time.Duration
	BestTradePNL    float64
	WorstTradePNL   float64
}

// Analyze computes performance statistics from the trade history.
// Returns an empty summary for an empty history.
func Analyze(trades []*domain.Trade) *PerformanceSummary {
	s := &PerformanceSummary{}
	if len(trades) == 0 {
		return s
	}

	var grossProfit, grossLoss float64
	var totalDuration time.Duration
	equity := 0.0
	peak := 0.0
	s.BestTradePNL = math.Inf(-1)
	s.WorstTradePNL = math.Inf(1)

	for _, t := range trades {
		s.TotalTrades++
		s.TotalPNL += t.PNL
		totalDuration += t.ExitTime.Sub(t.EntryTime)

		if t.PNL >= 0 {
			s.WinningTrades++
			grossProfit += t.PNL
		} else {
			s.LosingTrades++
			grossLoss -= t.PNL
		}
		if t.PNL > s.BestTradePNL {
			s.BestTradePNL = t.PNL
		}
		if t.PNL < s.WorstTradePNL {
			s.WorstTradePNL = t.PNL
		}

		equity += t.PNL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
	}

	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	if s.WinningTrades > 0 {
		s.AverageWin = grossProfit / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = grossLoss / float64(s.LosingTrades)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	}
	s.AverageDuration = totalDuration / time.Duration(s.TotalTrades)
	return s
}
