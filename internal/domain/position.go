package domain

import "time"

// Position represents an open (or just-closed) trading position.
type Position struct {
	ID              int64          // Monotonic identifier assigned by the position manager
	Symbol          string         // Trading symbol (e.g., "ETHUSDT")
	Side            OrderSide      // BUY only in this design
	EntryPrice      float64        // Price at which the position was entered
	Quantity        float64        // Remaining size; <= InitialQuantity
	InitialQuantity float64        // Size at entry, before partial exits
	StopLoss        float64        // Current stop-loss level; monotonically raised while trailing
	InitialStopLoss float64        // Stop-loss at entry; denominator for R-multiple triggers
	TakeProfit      float64        // Take-profit level
	HighestPrice    float64        // Highest price seen since entry; never decreases
	EntryTime       time.Time      // Timestamp when the position was entered
	Status          PositionStatus // FILLED while open, CLOSED afterwards
	RealizedPNL     float64        // PnL banked by partial exits
	AtBreakeven     bool           // Break-even stop already applied
	PartialTPHit    bool           // Partial take-profit already taken
}

// IsOpen checks whether the position is still live.
func (p *Position) IsOpen() bool {
	return p.Status == StatusFilled
}

// UnrealizedPNL returns the open PnL of the remaining quantity at the
// given price.
func (p *Position) UnrealizedPNL(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity
}

// PNLPercent returns the profit of the given price over entry, in
// percent of the entry price.
func (p *Position) PNLPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// TotalPNLPercent returns realized plus unrealized PnL at the given
// price, in percent of the initial notional. After a partial exit this
// diverges from PNLPercent, which tracks the price alone.
func (p *Position) TotalPNLPercent(price float64) float64 {
	notional := p.EntryPrice * p.InitialQuantity
	if notional == 0 {
		return 0
	}
	return (p.RealizedPNL + p.UnrealizedPNL(price)) / notional * 100
}

// RMultiple expresses the profit at the given price as a multiple of
// the initial risk (entry minus initial stop). Returns 0 when the
// initial risk is not positive.
func (p *Position) RMultiple(price float64) float64 {
	risk := p.EntryPrice - p.InitialStopLoss
	if risk <= 0 {
		return 0
	}
	return (price - p.EntryPrice) / risk
}
