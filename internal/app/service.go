package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"cryptoScannerBot/config"
	"cryptoScannerBot/internal/candles"
	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/ports"
	"cryptoScannerBot/internal/scanner"
	"cryptoScannerBot/internal/trading"
)

// Engine is the application service: it owns the single event loop
// that serializes every state mutation. Stream callbacks, the discovery
// ticker and external commands all post events onto one bounded queue
// consumed by Run; nothing else touches the pair set, the candle store
// or the position manager.
type Engine struct {
	cfg       *config.Config
	logger    ports.Logger
	exchange  ports.MarketDataClient
	settRepo  ports.SettingsRepository
	store     *candles.Store
	pairs     *scanner.PairSet
	discovery *scanner.Discovery
	scorer    ports.Scorer
	manager   *trading.Manager
	sink      ports.EventSink
	metrics   ports.Metrics

	settingsMu sync.RWMutex
	settings   *domain.BotSettings

	events  chan engineEvent
	dropped uint64
	now     func() time.Time

	// Stream lifecycle, touched only from the event loop.
	streamGen int
	klineStop chan struct{}
	tradeStop chan struct{}
	streaming []string
}

// Deps wires the engine's collaborators. Sink and Metrics may be nil;
// Now defaults to time.Now.
type Deps struct {
	Cfg       *config.Config
	Logger    ports.Logger
	Exchange  ports.MarketDataClient
	Settings  ports.SettingsRepository
	Store     *candles.Store
	Pairs     *scanner.PairSet
	Discovery *scanner.Discovery
	Scorer    ports.Scorer
	Manager   *trading.Manager
	Sink      ports.EventSink
	Metrics   ports.Metrics
	Now       func() time.Time
}

// NewEngine creates the application service instance.
func NewEngine(d Deps) (*Engine, error) {
	if d.Cfg == nil || d.Logger == nil || d.Exchange == nil || d.Settings == nil ||
		d.Store == nil || d.Pairs == nil || d.Discovery == nil || d.Scorer == nil || d.Manager == nil {
		return nil, fmt.Errorf("missing required dependencies for engine")
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:       d.Cfg,
		logger:    d.Logger,
		exchange:  d.Exchange,
		settRepo:  d.Settings,
		store:     d.Store,
		pairs:     d.Pairs,
		discovery: d.Discovery,
		scorer:    d.Scorer,
		manager:   d.Manager,
		sink:      d.Sink,
		metrics:   d.Metrics,
		events:    make(chan engineEvent, d.Cfg.EventQueueSize),
		now:       now,
	}, nil
}

// --- Event types ---

type engineEvent interface{ isEngineEvent() }

type candleEvent struct{ candle *domain.Candle }

type tickEvent struct {
	symbol string
	price  float64
}

type discoveryEvent struct{ results []scanner.DiscoveryResult }

// streamDownEvent signals that a stream of the given generation gave up
// reconnecting; stale generations are ignored.
type streamDownEvent struct{ gen int }

type commandEvent struct {
	run   func(ctx context.Context) error
	reply chan error
}

func (candleEvent) isEngineEvent()     {}
func (tickEvent) isEngineEvent()       {}
func (discoveryEvent) isEngineEvent()  {}
func (streamDownEvent) isEngineEvent() {}
func (commandEvent) isEngineEvent()    {}

// post enqueues an event without blocking the producer. Market-data
// events are droppable; the next closed candle or tick carries fresher
// data anyway.
func (e *Engine) post(ev engineEvent) bool {
	select {
	case e.events <- ev:
		return true
	default:
		dropped := atomic.AddUint64(&e.dropped, 1)
		if dropped%1000 == 1 {
			e.logger.Warn(context.Background(), "Event queue full, dropping market-data events", map[string]interface{}{
				"category": ports.LogCategoryFeed,
				"dropped":  dropped,
			})
		}
		return false
	}
}

// Run starts the engine and blocks until the context is canceled or a
// shutdown signal arrives.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info(ctx, "Starting scanner engine...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			e.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := e.exchange.Ping(ctx); err != nil {
		return fmt.Errorf("exchange connectivity check failed: %w", err)
	}

	settings, err := e.settRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("settings load failed: %w", err)
	}
	e.setSettings(settings)

	// First discovery cycle runs synchronously so the loop starts with
	// a populated universe and live streams.
	results, err := e.discovery.Scan(ctx, e.currentSettings())
	if err != nil {
		e.logger.Error(ctx, err, "Initial discovery cycle failed, starting with empty universe")
	} else {
		e.applyDiscovery(ctx, results)
	}

	go e.discoveryLoop(ctx)

	e.logger.Info(ctx, "Engine running", map[string]interface{}{
		"pairs":    e.pairs.Len(),
		"strategy": e.scorer.Name(),
	})

	for {
		select {
		case <-ctx.Done():
			e.stopStreams()
			e.logger.Info(context.Background(), "Engine stopped", map[string]interface{}{"droppedEvents": atomic.LoadUint64(&e.dropped)})
			return ctx.Err()
		case ev := <-e.events:
			e.dispatch(ctx, ev)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, ev engineEvent) {
	switch ev := ev.(type) {
	case candleEvent:
		e.handleCandle(ctx, ev.candle)
	case tickEvent:
		e.handleTick(ctx, ev.symbol, ev.price)
	case discoveryEvent:
		e.applyDiscovery(ctx, ev.results)
	case streamDownEvent:
		if ev.gen == e.streamGen {
			e.logger.Warn(ctx, "Market-data stream lost, restarting", map[string]interface{}{
				"category": ports.LogCategoryFeed,
			})
			e.restartStreams(ctx)
		}
	case commandEvent:
		ev.reply <- ev.run(ctx)
	}
}

// --- Discovery ---

func (e *Engine) discoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(e.cfg.SyncSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := e.discovery.Scan(ctx, e.currentSettings())
			if err != nil {
				e.logger.Error(ctx, err, "Discovery cycle failed, keeping previous universe")
				continue
			}
			e.post(discoveryEvent{results: results})
		}
	}
}

func (e *Engine) applyDiscovery(ctx context.Context, results []scanner.DiscoveryResult) {
	removed := e.pairs.Apply(results)
	for _, sym := range removed {
		e.store.Drop(sym)
	}
	if len(removed) > 0 {
		e.logger.Info(ctx, "Pairs left the monitored universe", map[string]interface{}{
			"category": ports.LogCategoryScanner,
			"removed":  removed,
		})
	}
	if e.metrics != nil {
		e.metrics.SetPairsMonitored(e.pairs.Len())
	}
	e.restartStreamsIfChanged(ctx)
	e.publishScanner(ctx)
}

// --- Streams ---

func sameSymbols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// streamSymbols is the union of the monitored universe and the symbols
// of open positions. An evicted symbol keeps its streams alive while a
// position on it is still open, so exit rules keep running.
func (e *Engine) streamSymbols() []string {
	symbols := e.pairs.Symbols()
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		seen[s] = true
	}
	for _, pos := range e.manager.OpenPositions() {
		if !seen[pos.Symbol] {
			seen[pos.Symbol] = true
			symbols = append(symbols, pos.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

func (e *Engine) restartStreamsIfChanged(ctx context.Context) {
	if sameSymbols(e.streamSymbols(), e.streaming) {
		return
	}
	e.restartStreams(ctx)
}

func (e *Engine) restartStreams(ctx context.Context) {
	e.stopStreams()
	e.streamGen++
	gen := e.streamGen

	symbols := e.streamSymbols()
	e.streaming = symbols
	if len(symbols) == 0 {
		return
	}

	errHandler := func(err error) {
		e.logger.Error(ctx, err, "Market-data stream error", map[string]interface{}{
			"category": ports.LogCategoryFeed,
		})
	}

	klineDone, klineStop, err := e.exchange.StreamKlines(ctx, symbols, e.cfg.ScanInterval,
		func(c *domain.Candle) { e.post(candleEvent{candle: c}) }, errHandler)
	if err != nil {
		e.logger.Error(ctx, err, "Failed to start candle stream", map[string]interface{}{
			"category": ports.LogCategoryFeed,
			"symbols":  len(symbols),
		})
		e.streaming = nil
		return
	}
	e.klineStop = klineStop

	tradeDone, tradeStop, err := e.exchange.StreamTrades(ctx, symbols,
		func(symbol string, price float64) { e.post(tickEvent{symbol: symbol, price: price}) }, errHandler)
	if err != nil {
		e.logger.Error(ctx, err, "Failed to start trade stream", map[string]interface{}{
			"category": ports.LogCategoryFeed,
			"symbols":  len(symbols),
		})
		close(klineStop)
		e.klineStop = nil
		e.streaming = nil
		return
	}
	e.tradeStop = tradeStop

	go func() {
		select {
		case <-klineDone:
		case <-tradeDone:
		case <-ctx.Done():
			return
		}
		e.post(streamDownEvent{gen: gen})
	}()

	e.logger.Info(ctx, "Market-data streams started", map[string]interface{}{
		"category": ports.LogCategoryFeed,
		"symbols":  len(symbols),
		"interval": e.cfg.ScanInterval,
	})
}

func (e *Engine) stopStreams() {
	if e.klineStop != nil {
		close(e.klineStop)
		e.klineStop = nil
	}
	if e.tradeStop != nil {
		close(e.tradeStop)
		e.tradeStop = nil
	}
	e.streaming = nil
}

// --- Market-data handling ---

func (e *Engine) handleCandle(ctx context.Context, c *domain.Candle) {
	if !e.pairs.Contains(c.Symbol) {
		return
	}
	e.store.Upsert(c)
	if !c.IsFinal || c.Interval != e.cfg.ScanInterval {
		return
	}
	e.scorePair(ctx, c.Symbol)
}

func (e *Engine) scorePair(ctx context.Context, symbol string) {
	pair := e.pairs.Get(symbol)
	if pair == nil {
		return
	}
	settings := e.currentSettings()
	history := e.store.Get(symbol, e.cfg.ScanInterval)

	result, err := e.scorer.Evaluate(ctx, pair, history, settings)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientData) {
			e.logger.Debug(ctx, "Not enough candles to score yet", map[string]interface{}{
				"category": ports.LogCategoryScanner,
				"symbol":   symbol,
				"have":     len(history),
				"need":     e.scorer.RequiredDataPoints(),
			})
			return
		}
		e.logger.Error(ctx, err, "Scoring failed", map[string]interface{}{
			"category": ports.LogCategoryScanner,
			"symbol":   symbol,
		})
		return
	}

	pair.BaseScore = result.Score
	pair.StopHint = result.StopHint
	if result.Score.IsEntrySignal() && e.manager.Cooldowns().Active(symbol, e.now()) {
		pair.Score = domain.ScoreCooldown
	} else {
		pair.Score = result.Score
	}
	if e.metrics != nil {
		e.metrics.ScoreEvaluated(string(pair.Score))
	}

	if pair.Score.IsEntrySignal() && e.manager.State().IsRunning {
		opened, reason := e.manager.EvaluateEntry(ctx, pair, settings)
		if !opened {
			e.logger.Debug(ctx, "Entry signal not taken", map[string]interface{}{
				"category": ports.LogCategoryTrade,
				"symbol":   symbol,
				"score":    pair.Score,
				"reason":   reason,
			})
		}
	}

	e.publishScanner(ctx)
}

// handleTick updates the pair's live price and runs the exit rules.
// Ticks for symbols outside the universe still reach the position
// manager: a position survives its symbol leaving discovery.
func (e *Engine) handleTick(ctx context.Context, symbol string, price float64) {
	if pair := e.pairs.Get(symbol); pair != nil {
		pair.Price = price
	}
	if !e.manager.State().IsRunning {
		return
	}
	e.manager.OnPriceTick(ctx, symbol, price, e.currentSettings())
}

// ScannerPayload is the SCANNER_UPDATE event body.
type ScannerPayload struct {
	Pairs []domain.ScannedPair
}

func (e *Engine) publishScanner(ctx context.Context) {
	if e.sink == nil {
		return
	}
	e.sink.Publish(ctx, ports.EventScannerUpdate, ScannerPayload{Pairs: e.pairs.Snapshot()})
}

// --- Settings snapshot ---

func (e *Engine) currentSettings() *domain.BotSettings {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	return e.settings
}

func (e *Engine) setSettings(s *domain.BotSettings) {
	e.settingsMu.Lock()
	e.settings = s
	e.settingsMu.Unlock()
}

// --- Commands ---

// submit runs fn on the event loop and waits for its result, so
// external callers (HTTP handlers, CLI) never race the loop's state.
func (e *Engine) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := commandEvent{run: fn, reply: make(chan error, 1)}
	select {
	case e.events <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartTrading enables entries and tick processing.
func (e *Engine) StartTrading(ctx context.Context) error {
	return e.submit(ctx, func(ctx context.Context) error {
		e.manager.SetRunning(ctx, true)
		return nil
	})
}

// StopTrading halts new entries and tick processing; open positions
// stay untouched.
func (e *Engine) StopTrading(ctx context.Context) error {
	return e.submit(ctx, func(ctx context.Context) error {
		e.manager.SetRunning(ctx, false)
		return nil
	})
}

// SetTradingMode switches the fill-simulation mode.
func (e *Engine) SetTradingMode(ctx context.Context, mode domain.TradingMode) error {
	return e.submit(ctx, func(ctx context.Context) error {
		if mode != domain.ModeSimulated && mode != domain.ModeRealFeed {
			return fmt.Errorf("unknown trading mode %q", mode)
		}
		e.manager.SetMode(ctx, mode)
		return nil
	})
}

// ManualClose closes an open position at the last known market price.
func (e *Engine) ManualClose(ctx context.Context, positionID int64) error {
	return e.submit(ctx, func(ctx context.Context) error {
		pos := e.manager.State().FindByID(positionID)
		if pos == nil {
			return fmt.Errorf("position %d: %w", positionID, ports.ErrNotFound)
		}
		pair := e.pairs.Get(pos.Symbol)
		price := 0.0
		if pair != nil {
			price = pair.Price
		}
		if price <= 0 {
			return fmt.Errorf("no market price available for %s", pos.Symbol)
		}
		return e.manager.ClosePosition(ctx, positionID, price, domain.CloseReasonManual, e.currentSettings())
	})
}

// UpdateSettings persists a new settings snapshot and swaps it in
// atomically; in-flight evaluations finish on the old snapshot.
func (e *Engine) UpdateSettings(ctx context.Context, s *domain.BotSettings) error {
	return e.submit(ctx, func(ctx context.Context) error {
		if s == nil {
			return fmt.Errorf("settings must not be nil")
		}
		if s.MaxOpenPositions <= 0 {
			return fmt.Errorf("max open positions must be positive")
		}
		if s.PositionSizePct <= 0 || s.PositionSizePct > 100 {
			return fmt.Errorf("position size percent must be in (0, 100]")
		}
		if s.StopLossPct <= 0 {
			return fmt.Errorf("stop loss percent must be positive")
		}
		snapshot := s.Clone()
		if err := e.settRepo.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("settings save failed: %w", err)
		}
		e.setSettings(snapshot)
		e.logger.Info(ctx, "Settings updated", map[string]interface{}{
			"maxOpenPositions": snapshot.MaxOpenPositions,
			"positionSizePct":  snapshot.PositionSizePct,
		})
		return nil
	})
}

// Settings returns the current settings snapshot.
func (e *Engine) Settings() *domain.BotSettings {
	return e.currentSettings().Clone()
}
