package domain

import "time"

// Trade is the append-only history record written when a position
// closes. Never mutated afterwards.
type Trade struct {
	ID          int64       // Identifier of the closed position
	Symbol      string      // Trading symbol
	EntryPrice  float64     // Price at which the position was entered
	ExitPrice   float64     // Price of the final exit
	Quantity    float64     // Initial position size (partial exits included in PNL)
	PNL         float64     // Realized plus final-exit profit and loss
	PNLPercent  float64     // PNL over the initial notional, percent
	EntryTime   time.Time   // Timestamp when the position was entered
	ExitTime    time.Time   // Timestamp when the position was closed
	CloseReason CloseReason // Reason why the position was closed
}
