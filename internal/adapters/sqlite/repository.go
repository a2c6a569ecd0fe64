// Package sqlite persists the bot-state aggregate and fetched candle
// history, implementing ports.StateRepository and
// ports.CandleRepository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the persistence ports using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/scanner_bot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver behaves
	// best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite repository ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS bot_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		balance REAL NOT NULL,
		trade_id_counter INTEGER NOT NULL,
		is_running INTEGER NOT NULL,
		trading_mode TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		initial_quantity REAL NOT NULL,
		stop_loss REAL NOT NULL,
		initial_stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		highest_price REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		realized_pnl REAL NOT NULL,
		at_breakeven INTEGER NOT NULL,
		partial_tp_hit INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_history (
		id INTEGER PRIMARY KEY,
		symbol TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		quantity REAL NOT NULL,
		pnl REAL NOT NULL,
		pnl_percent REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		close_reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS candles (
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		open_time INTEGER NOT NULL,
		close_time INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (symbol, interval, open_time)
	);

	CREATE INDEX IF NOT EXISTS idx_positions_symbol ON positions (symbol);
	CREATE INDEX IF NOT EXISTS idx_trade_history_symbol_exit ON trade_history (symbol, exit_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// LoadState reads the persisted aggregate. Returns (nil, nil) when no
// state has been saved yet.
func (r *Repository) LoadState(ctx context.Context) (*domain.BotState, error) {
	state := &domain.BotState{}
	row := r.db.QueryRowContext(ctx, `SELECT balance, trade_id_counter, is_running, trading_mode FROM bot_state WHERE id = 1`)
	var isRunning int
	var mode string
	if err := row.Scan(&state.Balance, &state.TradeIDCounter, &isRunning, &mode); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load bot state: %w: %w", ports.ErrQueryFailed, err)
	}
	state.IsRunning = isRunning != 0
	state.TradingMode = domain.TradingMode(mode)

	positions, err := r.loadPositions(ctx)
	if err != nil {
		return nil, err
	}
	state.ActivePositions = positions

	history, err := r.loadTrades(ctx)
	if err != nil {
		return nil, err
	}
	state.TradeHistory = history
	return state, nil
}

func (r *Repository) loadPositions(ctx context.Context) ([]*domain.Position, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, side, entry_price, quantity, initial_quantity, stop_loss,
		       initial_stop_loss, take_profit, highest_price, entry_time, status,
		       realized_pnl, at_breakeven, partial_tp_hit
		FROM positions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []*domain.Position
	for rows.Next() {
		p := &domain.Position{}
		var atBreakeven, partialHit int
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Side, &p.EntryPrice, &p.Quantity, &p.InitialQuantity,
			&p.StopLoss, &p.InitialStopLoss, &p.TakeProfit, &p.HighestPrice, &p.EntryTime, &p.Status,
			&p.RealizedPNL, &atBreakeven, &partialHit); err != nil {
			return nil, fmt.Errorf("scan position: %w: %w", ports.ErrQueryFailed, err)
		}
		p.AtBreakeven = atBreakeven != 0
		p.PartialTPHit = partialHit != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) loadTrades(ctx context.Context) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, entry_price, exit_price, quantity, pnl, pnl_percent,
		       entry_time, exit_time, close_reason
		FROM trade_history ORDER BY exit_time, id`)
	if err != nil {
		return nil, fmt.Errorf("load trade history: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []*domain.Trade
	for rows.Next() {
		t := &domain.Trade{}
		if err := rows.Scan(&t.ID, &t.Symbol, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
			&t.PNL, &t.PNLPercent, &t.EntryTime, &t.ExitTime, &t.CloseReason); err != nil {
			return nil, fmt.Errorf("scan trade: %w: %w", ports.ErrQueryFailed, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveState writes the whole aggregate in one transaction.
func (r *Repository) SaveState(ctx context.Context, state *domain.BotState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save state: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer tx.Rollback()

	isRunning := 0
	if state.IsRunning {
		isRunning = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bot_state (id, balance, trade_id_counter, is_running, trading_mode)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance = excluded.balance,
			trade_id_counter = excluded.trade_id_counter,
			is_running = excluded.is_running,
			trading_mode = excluded.trading_mode`,
		state.Balance, state.TradeIDCounter, isRunning, string(state.TradingMode)); err != nil {
		return fmt.Errorf("save bot state row: %w: %w", ports.ErrUpdateFailed, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("clear positions: %w: %w", ports.ErrUpdateFailed, err)
	}
	for _, p := range state.ActivePositions {
		atBreakeven, partialHit := 0, 0
		if p.AtBreakeven {
			atBreakeven = 1
		}
		if p.PartialTPHit {
			partialHit = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO positions (id, symbol, side, entry_price, quantity, initial_quantity,
				stop_loss, initial_stop_loss, take_profit, highest_price, entry_time, status,
				realized_pnl, at_breakeven, partial_tp_hit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Symbol, string(p.Side), p.EntryPrice, p.Quantity, p.InitialQuantity,
			p.StopLoss, p.InitialStopLoss, p.TakeProfit, p.HighestPrice, p.EntryTime, string(p.Status),
			p.RealizedPNL, atBreakeven, partialHit); err != nil {
			return fmt.Errorf("save position %d: %w: %w", p.ID, ports.ErrUpdateFailed, err)
		}
	}

	for _, t := range state.TradeHistory {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trade_history (id, symbol, entry_price, exit_price, quantity, pnl,
				pnl_percent, entry_time, exit_time, close_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			t.ID, t.Symbol, t.EntryPrice, t.ExitPrice, t.Quantity, t.PNL,
			t.PNLPercent, t.EntryTime, t.ExitTime, string(t.CloseReason)); err != nil {
			return fmt.Errorf("save trade %d: %w: %w", t.ID, ports.ErrUpdateFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w: %w", ports.ErrUpdateFailed, err)
	}
	return nil
}

// SaveCandles upserts candles keyed by (symbol, interval, open time).
func (r *Repository) SaveCandles(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save candles: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, interval, open_time, close_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, interval, open_time) DO UPDATE SET
			close_time = excluded.close_time,
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("prepare candle upsert: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.Interval, c.OpenTime.UnixMilli(), c.CloseTime.UnixMilli(),
			c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("upsert candle %s/%s@%d: %w: %w", c.Symbol, c.Interval, c.OpenTime.UnixMilli(), ports.ErrUpdateFailed, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit candles: %w: %w", ports.ErrUpdateFailed, err)
	}
	return nil
}

// LastOpenTime returns the newest stored open time for the series, or
// the zero time when nothing is stored.
func (r *Repository) LastOpenTime(ctx context.Context, symbol, interval string) (time.Time, error) {
	row := r.db.QueryRowContext(ctx, `SELECT MAX(open_time) FROM candles WHERE symbol = ? AND interval = ?`, symbol, interval)
	var maxOpen sql.NullInt64
	if err := row.Scan(&maxOpen); err != nil {
		return time.Time{}, fmt.Errorf("last open time: %w: %w", ports.ErrQueryFailed, err)
	}
	if !maxOpen.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(maxOpen.Int64), nil
}

// LoadCandles returns up to limit most recent candles in chronological
// order.
func (r *Repository) LoadCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume
		FROM (
			SELECT * FROM candles WHERE symbol = ? AND interval = ?
			ORDER BY open_time DESC LIMIT ?
		) ORDER BY open_time ASC`, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []*domain.Candle
	for rows.Next() {
		var openMs, closeMs int64
		c := &domain.Candle{Symbol: symbol, Interval: interval, IsFinal: true}
		if err := rows.Scan(&openMs, &closeMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w: %w", ports.ErrQueryFailed, err)
		}
		c.OpenTime = time.UnixMilli(openMs)
		c.CloseTime = time.UnixMilli(closeMs)
		out = append(out, c)
	}
	return out, rows.Err()
}
