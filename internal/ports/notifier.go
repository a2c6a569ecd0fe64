package ports

import (
	"context"
	"time"
)

// EventType tags structured events emitted by the core.
type EventType string

const (
	EventScannerUpdate   EventType = "SCANNER_UPDATE"
	EventPositionsUpdate EventType = "POSITIONS_UPDATED"
	EventBotStatus       EventType = "BOT_STATUS_UPDATE"
)

// Event is a structured notification. Delivery (WebSocket broadcast,
// log file, ...) is the sink's concern.
type Event struct {
	ID      string
	Type    EventType
	Time    time.Time
	Payload interface{}
}

// EventSink receives structured events from the core. Publish must not
// block the caller.
type EventSink interface {
	Publish(ctx context.Context, eventType EventType, payload interface{})
}

// Metrics is the observability counter surface the core updates.
// Implementations decide the exposition mechanism.
type Metrics interface {
	ScoreEvaluated(score string)
	PositionOpened()
	PositionClosed(reason string)
	SetOpenPositions(n int)
	SetBalance(balance float64)
	SetPairsMonitored(n int)
}
