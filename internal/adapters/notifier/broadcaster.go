// Package notifier implements ports.EventSink as an in-process
// broadcaster: events get a unique id, a debug log line and a
// non-blocking fan-out to subscriber channels (the attachment point
// for an outward transport such as a WebSocket hub).
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptoScannerBot/internal/ports"
)

const subscriberBuffer = 64

// Broadcaster fans structured events out to subscribers.
type Broadcaster struct {
	logger ports.Logger

	mu          sync.Mutex
	subscribers map[int]chan ports.Event
	nextSubID   int
}

// New creates a broadcaster.
func New(logger ports.Logger) *Broadcaster {
	return &Broadcaster{
		logger:      logger,
		subscribers: make(map[int]chan ports.Event),
	}
}

// Publish delivers an event to every subscriber without blocking the
// caller; a subscriber with a full buffer misses the event.
func (b *Broadcaster) Publish(ctx context.Context, eventType ports.EventType, payload interface{}) {
	event := ports.Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Time:    time.Now().UTC(),
		Payload: payload,
	}
	if b.logger != nil {
		b.logger.Debug(ctx, "Event published", map[string]interface{}{"eventID": event.ID, "type": string(eventType)})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function.
func (b *Broadcaster) Subscribe() (<-chan ports.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	ch := make(chan ports.Event, subscriberBuffer)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}
