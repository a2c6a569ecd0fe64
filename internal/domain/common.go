package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusFilled PositionStatus = "FILLED"
	StatusClosed PositionStatus = "CLOSED"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "STOP_LOSS"
	CloseReasonTakeProfit CloseReason = "TAKE_PROFIT"
	CloseReasonManual     CloseReason = "MANUAL"
	CloseReasonUnknown    CloseReason = "UNKNOWN"
)

// Score is the discrete outcome of a scoring pass over a monitored pair.
type Score string

const (
	ScoreHold         Score = "HOLD"
	ScoreBuy          Score = "BUY"
	ScoreStrongBuy    Score = "STRONG_BUY"
	ScoreCooldown     Score = "COOLDOWN"
	ScoreCompression  Score = "COMPRESSION"
	ScoreFakeBreakout Score = "FAKE_BREAKOUT"
)

// IsEntrySignal reports whether the score qualifies for opening a position.
func (s Score) IsEntrySignal() bool {
	return s == ScoreBuy || s == ScoreStrongBuy
}

// Trend classifies short- or longer-horizon price direction.
type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendNeutral Trend = "NEUTRAL"
)

// MarketRegime classifies the long-timeframe market structure of a pair.
type MarketRegime string

const (
	RegimeUptrend   MarketRegime = "UPTREND"
	RegimeDowntrend MarketRegime = "DOWNTREND"
	RegimeNeutral   MarketRegime = "NEUTRAL"
)

// TradingMode selects how fills are simulated. SIMULATED fills at the
// observed tick price; REAL_FEED additionally applies configured
// slippage at entry.
type TradingMode string

const (
	ModeSimulated TradingMode = "SIMULATED"
	ModeRealFeed  TradingMode = "REAL_FEED"
)

// BreakevenStyle selects how the auto-break-even trigger is expressed.
type BreakevenStyle string

const (
	BreakevenStylePercent BreakevenStyle = "PCT" // trigger is unrealized PnL percent
	BreakevenStyleR       BreakevenStyle = "R"   // trigger is a multiple of initial risk
)
