package trading

import (
	"context"
	"fmt"
	"time"

	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/ports"
)

// Manager owns the bot-state aggregate: virtual balance, open
// positions, trade history and run flags. Every mutation flows through
// its operations, which the engine loop serializes; the struct itself
// is not safe for concurrent use.
//
// Exit policy: the take-profit target stays active even while the
// trailing stop is raising the stop-loss. The stop check runs first on
// every tick.
//
// Accounting model: the full cost (quantity x entry price) is deducted
// from balance at entry; partial exits credit quantity x price as they
// happen; the final close credits exit price x remaining quantity.
type Manager struct {
	logger    ports.Logger
	stateRepo ports.StateRepository
	sink      ports.EventSink
	metrics   ports.Metrics
	cooldowns *CooldownRegistry
	state     *domain.BotState
	now       func() time.Time
}

// Config wires the manager's collaborators. Sink and Metrics may be
// nil; Now defaults to time.Now.
type Config struct {
	Logger    ports.Logger
	StateRepo ports.StateRepository
	Sink      ports.EventSink
	Metrics   ports.Metrics
	Cooldowns *CooldownRegistry
	State     *domain.BotState
	Now       func() time.Time
}

// NewManager creates a position manager around an existing state
// aggregate.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Logger == nil || cfg.StateRepo == nil || cfg.Cooldowns == nil || cfg.State == nil {
		return nil, fmt.Errorf("missing required dependencies for position manager")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		logger:    cfg.Logger,
		stateRepo: cfg.StateRepo,
		sink:      cfg.Sink,
		metrics:   cfg.Metrics,
		cooldowns: cfg.Cooldowns,
		state:     cfg.State,
		now:       now,
	}, nil
}

// State returns the owned aggregate. Callers must not mutate it
// outside the engine loop.
func (m *Manager) State() *domain.BotState { return m.state }

// OpenPositions returns a copy of the open-position slice.
func (m *Manager) OpenPositions() []*domain.Position {
	out := make([]*domain.Position, len(m.state.ActivePositions))
	copy(out, m.state.ActivePositions)
	return out
}

// Cooldowns exposes the registry so the scorer path can apply the
// cooldown override.
func (m *Manager) Cooldowns() *CooldownRegistry { return m.cooldowns }

// EvaluateEntry opens a position for a qualifying scanned pair.
// Returns (false, reason) when any precondition blocks the entry; the
// rejection is a warning, never an error.
func (m *Manager) EvaluateEntry(ctx context.Context, pair *domain.ScannedPair, settings *domain.BotSettings) (bool, string) {
	now := m.now()

	if !m.state.IsRunning {
		return false, "bot is not running"
	}
	if len(m.state.ActivePositions) >= settings.MaxOpenPositions {
		return false, fmt.Sprintf("max open positions reached (%d/%d)", len(m.state.ActivePositions), settings.MaxOpenPositions)
	}
	if existing := m.state.FindOpen(pair.Symbol); existing != nil {
		return false, fmt.Sprintf("position %d already open for %s", existing.ID, pair.Symbol)
	}
	if pair.Score != domain.ScoreStrongBuy && !(pair.Score == domain.ScoreBuy && !settings.RequireStrongBuy) {
		return false, fmt.Sprintf("score %s does not qualify", pair.Score)
	}
	if m.cooldowns.Active(pair.Symbol, now) {
		return false, fmt.Sprintf("symbol in cooldown for %s", m.cooldowns.Remaining(pair.Symbol, now).Round(time.Second))
	}

	entry := entryPrice(pair.Price, m.state.TradingMode, settings)
	if entry <= 0 {
		return false, "no valid price for symbol"
	}
	cost := positionCost(m.state.Balance, pair.Score, settings)
	if cost <= 0 || cost > m.state.Balance {
		return false, fmt.Sprintf("insufficient balance (%.2f) for position cost %.2f", m.state.Balance, cost)
	}

	stopLoss := entryStopLoss(entry, pair.ATR, pair.StopHint, settings)
	if stopLoss >= entry {
		reason := fmt.Sprintf("stop loss %.8f not below entry %.8f, trade rejected", stopLoss, entry)
		m.logger.Warn(ctx, "Entry rejected", map[string]interface{}{
			"category": ports.LogCategoryTrade,
			"symbol":   pair.Symbol,
			"reason":   reason,
		})
		return false, reason
	}

	quantity := cost / entry
	m.state.TradeIDCounter++
	pos := &domain.Position{
		ID:              m.state.TradeIDCounter,
		Symbol:          pair.Symbol,
		Side:            domain.Buy,
		EntryPrice:      entry,
		Quantity:        quantity,
		InitialQuantity: quantity,
		StopLoss:        stopLoss,
		InitialStopLoss: stopLoss,
		TakeProfit:      entryTakeProfit(entry, settings),
		HighestPrice:    entry,
		EntryTime:       now,
		Status:          domain.StatusFilled,
	}
	m.state.Balance -= cost
	m.state.ActivePositions = append(m.state.ActivePositions, pos)

	m.logger.Info(ctx, "Position opened", map[string]interface{}{
		"category":   ports.LogCategoryTrade,
		"positionID": pos.ID,
		"symbol":     pos.Symbol,
		"score":      pair.Score,
		"entry":      pos.EntryPrice,
		"quantity":   pos.Quantity,
		"stopLoss":   pos.StopLoss,
		"takeProfit": pos.TakeProfit,
		"balance":    m.state.Balance,
	})

	m.persist(ctx)
	m.notifyPositions(ctx)
	if m.metrics != nil {
		m.metrics.PositionOpened()
		m.metrics.SetOpenPositions(len(m.state.ActivePositions))
		m.metrics.SetBalance(m.state.Balance)
	}
	return true, ""
}

// OnPriceTick runs the exit rules for every open position on the
// symbol: highest-price tracking, trailing stop, break-even, partial
// take-profit, then the stop/target exit checks.
func (m *Manager) OnPriceTick(ctx context.Context, symbol string, price float64, settings *domain.BotSettings) {
	if price <= 0 {
		return
	}
	for _, pos := range m.OpenPositions() {
		if pos.Symbol != symbol || !pos.IsOpen() {
			continue
		}
		m.tickPosition(ctx, pos, price, settings)
	}
}

func (m *Manager) tickPosition(ctx context.Context, pos *domain.Position, price float64, settings *domain.BotSettings) {
	changed := false

	// 1. Highest price since entry never decreases.
	if price > pos.HighestPrice {
		pos.HighestPrice = price
		changed = true
	}

	// 2. Trailing stop: candidate follows the highest price and only
	// ever raises the stop.
	if settings.UseTrailingStop && settings.TrailingStopPct > 0 {
		candidate := pos.HighestPrice * (1 - settings.TrailingStopPct/100)
		if candidate > pos.StopLoss {
			pos.StopLoss = candidate
			changed = true
			m.logger.Debug(ctx, "Trailing stop raised", map[string]interface{}{
				"category":   ports.LogCategoryTrade,
				"positionID": pos.ID,
				"stopLoss":   pos.StopLoss,
			})
		}
	}

	// 3. Auto break-even, applied once.
	if settings.UseAutoBreakeven && !pos.AtBreakeven && m.breakevenTriggered(pos, price, settings) {
		if pos.EntryPrice > pos.StopLoss {
			pos.StopLoss = pos.EntryPrice
		}
		pos.AtBreakeven = true
		changed = true
		m.logger.Info(ctx, "Stop moved to break-even", map[string]interface{}{
			"category":   ports.LogCategoryTrade,
			"positionID": pos.ID,
			"stopLoss":   pos.StopLoss,
		})
	}

	// 4. Partial take-profit, applied once against the initial size.
	if settings.UsePartialTP && !pos.PartialTPHit && pos.PNLPercent(price) >= settings.PartialTPTrigger {
		qtyToSell := pos.InitialQuantity * settings.PartialTPSellQty / 100
		if qtyToSell > pos.Quantity {
			qtyToSell = pos.Quantity
		}
		if qtyToSell > 0 {
			slicePnl := (price - pos.EntryPrice) * qtyToSell
			pos.RealizedPNL += slicePnl
			pos.Quantity -= qtyToSell
			m.state.Balance += price * qtyToSell
			pos.PartialTPHit = true
			changed = true
			m.logger.Info(ctx, "Partial take-profit filled", map[string]interface{}{
				"category":   ports.LogCategoryTrade,
				"positionID": pos.ID,
				"soldQty":    qtyToSell,
				"price":      price,
				"slicePnl":   slicePnl,
				"remaining":  pos.Quantity,
				"balance":    m.state.Balance,
			})
		}
	}

	// 5. Exit checks: stop first, then target. The target stays active
	// regardless of trailing.
	if price <= pos.StopLoss {
		if err := m.ClosePosition(ctx, pos.ID, price, domain.CloseReasonStopLoss, settings); err != nil {
			m.logger.Error(ctx, err, "Failed to close position on stop", map[string]interface{}{"positionID": pos.ID})
		}
		return
	}
	if price >= pos.TakeProfit {
		if err := m.ClosePosition(ctx, pos.ID, price, domain.CloseReasonTakeProfit, settings); err != nil {
			m.logger.Error(ctx, err, "Failed to close position on target", map[string]interface{}{"positionID": pos.ID})
		}
		return
	}

	if changed {
		m.persist(ctx)
		m.notifyPositions(ctx)
		if m.metrics != nil {
			m.metrics.SetBalance(m.state.Balance)
		}
	}
}

func (m *Manager) breakevenTriggered(pos *domain.Position, price float64, settings *domain.BotSettings) bool {
	switch settings.BreakevenStyle {
	case domain.BreakevenStyleR:
		return pos.RMultiple(price) >= settings.BreakevenTrigger
	default:
		// Percent style measures the whole position: banked partial
		// exits count toward the trigger alongside the open quantity.
		return pos.TotalPNLPercent(price) >= settings.BreakevenTrigger
	}
}

// ClosePosition realizes the remaining quantity at exitPrice and moves
// the position to history. Closing an unknown or already-closed id
// returns ports.ErrNotFound without touching the balance.
func (m *Manager) ClosePosition(ctx context.Context, id int64, exitPrice float64, reason domain.CloseReason, settings *domain.BotSettings) error {
	pos := m.state.FindByID(id)
	if pos == nil {
		return fmt.Errorf("position %d: %w", id, ports.ErrNotFound)
	}
	now := m.now()

	remaining := pos.Quantity
	totalPnl := pos.RealizedPNL + (exitPrice-pos.EntryPrice)*remaining
	m.state.Balance += exitPrice * remaining

	pos.Status = domain.StatusClosed
	m.removeActive(id)

	initialNotional := pos.EntryPrice * pos.InitialQuantity
	trade := &domain.Trade{
		ID:          pos.ID,
		Symbol:      pos.Symbol,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    pos.InitialQuantity,
		PNL:         totalPnl,
		EntryTime:   pos.EntryTime,
		ExitTime:    now,
		CloseReason: reason,
	}
	if initialNotional > 0 {
		trade.PNLPercent = totalPnl / initialNotional * 100
	}
	m.state.TradeHistory = append(m.state.TradeHistory, trade)

	if totalPnl < 0 && settings.LossCooldownHours > 0 {
		until := now.Add(time.Duration(settings.LossCooldownHours * float64(time.Hour)))
		m.cooldowns.Set(pos.Symbol, until, now)
		m.logger.Info(ctx, "Loss cooldown started", map[string]interface{}{
			"category": ports.LogCategoryTrade,
			"symbol":   pos.Symbol,
			"until":    until,
		})
	}

	m.logger.Info(ctx, "Position closed", map[string]interface{}{
		"category":   ports.LogCategoryTrade,
		"positionID": pos.ID,
		"symbol":     pos.Symbol,
		"reason":     reason,
		"exitPrice":  exitPrice,
		"pnl":        totalPnl,
		"pnlPercent": trade.PNLPercent,
		"balance":    m.state.Balance,
	})

	m.persist(ctx)
	m.notifyPositions(ctx)
	if m.metrics != nil {
		m.metrics.PositionClosed(string(reason))
		m.metrics.SetOpenPositions(len(m.state.ActivePositions))
		m.metrics.SetBalance(m.state.Balance)
	}
	return nil
}

// SetRunning toggles trading. Stopping halts new entries and tick
// processing but leaves open positions untouched.
func (m *Manager) SetRunning(ctx context.Context, running bool) {
	if m.state.IsRunning == running {
		return
	}
	m.state.IsRunning = running
	m.persist(ctx)
	m.notifyStatus(ctx)
}

// SetMode switches the fill-simulation mode.
func (m *Manager) SetMode(ctx context.Context, mode domain.TradingMode) {
	if m.state.TradingMode == mode {
		return
	}
	m.state.TradingMode = mode
	m.persist(ctx)
	m.notifyStatus(ctx)
}

func (m *Manager) removeActive(id int64) {
	active := m.state.ActivePositions
	for i, p := range active {
		if p.ID == id {
			m.state.ActivePositions = append(active[:i], active[i+1:]...)
			return
		}
	}
}

// persist writes the aggregate after a state-changing operation. A
// persistence failure is logged and trading continues in memory.
func (m *Manager) persist(ctx context.Context) {
	if err := m.stateRepo.SaveState(ctx, m.state); err != nil {
		m.logger.Error(ctx, err, "Failed to persist bot state")
	}
}

// PositionsPayload is the POSITIONS_UPDATED event body.
type PositionsPayload struct {
	Balance   float64
	Active    []*domain.Position
	Completed int
}

// StatusPayload is the BOT_STATUS_UPDATE event body.
type StatusPayload struct {
	IsRunning   bool
	TradingMode domain.TradingMode
	Balance     float64
	Performance *PerformanceSummary
}

func (m *Manager) notifyPositions(ctx context.Context) {
	if m.sink == nil {
		return
	}
	m.sink.Publish(ctx, ports.EventPositionsUpdate, PositionsPayload{
		Balance:   m.state.Balance,
		Active:    m.OpenPositions(),
		Completed: len(m.state.TradeHistory),
	})
}

func (m *Manager) notifyStatus(ctx context.Context) {
	if m.sink == nil {
		return
	}
	m.sink.Publish(ctx, ports.EventBotStatus, StatusPayload{
		IsRunning:   m.state.IsRunning,
		TradingMode: m.state.TradingMode,
		Balance:     m.state.Balance,
		Performance: Analyze(m.state.TradeHistory),
	})
}
