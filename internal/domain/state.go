package domain

// BotState is the durable aggregate owned by the position manager:
// virtual balance, open positions, closed trade history and the run
// flags. Persisted after every state-changing operation.
type BotState struct {
	Balance         float64
	ActivePositions []*Position
	TradeHistory    []*Trade
	TradeIDCounter  int64
	IsRunning       bool
	TradingMode     TradingMode
}

// NewBotState returns a fresh state with the given starting balance.
func NewBotState(initialBalance float64) *BotState {
	return &BotState{
		Balance:     initialBalance,
		TradingMode: ModeSimulated,
	}
}

// FindOpen returns the open position for a symbol, or nil.
func (b *BotState) FindOpen(symbol string) *Position {
	for _, p := range b.ActivePositions {
		if p.Symbol == symbol {
			return p
		}
	}
	return nil
}

// FindByID returns the open position with the given id, or nil.
func (b *BotState) FindByID(id int64) *Position {
	for _, p := range b.ActivePositions {
		if p.ID == id {
			return p
		}
	}
	return nil
}
