package ports

import (
	"context"
	"time"

	"cryptoScannerBot/internal/domain"
)

// StateRepository persists the bot-state aggregate. Load returns
// (nil, nil) when nothing has been persisted yet.
type StateRepository interface {
	LoadState(ctx context.Context) (*domain.BotState, error)
	SaveState(ctx context.Context, state *domain.BotState) error
}

// CandleRepository is the durable backing store for fetched candles,
// enabling incremental (delta) fetches across discovery cycles.
type CandleRepository interface {
	// SaveCandles upserts candles keyed by (symbol, interval, open time).
	SaveCandles(ctx context.Context, candles []*domain.Candle) error
	// LastOpenTime returns the newest stored open time for the series,
	// or the zero time when none exist.
	LastOpenTime(ctx context.Context, symbol, interval string) (time.Time, error)
	// LoadCandles returns up to limit most recent candles in
	// chronological order.
	LoadCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)
}

// SettingsRepository persists the operator-editable settings snapshot.
type SettingsRepository interface {
	Load(ctx context.Context) (*domain.BotSettings, error)
	Save(ctx context.Context, settings *domain.BotSettings) error
}
