package ports

import (
	"context"

	"cryptoScannerBot/internal/domain"
)

// ScoreResult carries the score plus an optional structural stop-loss
// hint (prior candle low for breakout entries; zero when absent).
type ScoreResult struct {
	Score    domain.Score
	StopHint float64
}

// Scorer is the pluggable signal-scoring strategy evaluated on every
// closed candle of a monitored pair's scoring timeframe. Evaluate
// updates the pair's live indicator fields in place (the caller
// serializes access) and returns the resulting score.
// ErrInsufficientData means the event should be skipped with the score
// left unchanged.
type Scorer interface {
	// Name returns the strategy identifier used for selection.
	Name() string

	// RequiredDataPoints returns the minimum number of candles needed.
	RequiredDataPoints() int

	// Evaluate recomputes indicators and classifies the pair.
	Evaluate(ctx context.Context, pair *domain.ScannedPair, candles []*domain.Candle, settings *domain.BotSettings) (ScoreResult, error)
}
