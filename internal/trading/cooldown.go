package trading

import (
	"sync"
	"time"
)

// CooldownRegistry records loss-triggered trading suspension windows
// per symbol. Entries are lazily expired: reads ignore past windows
// and writes prune them.
type CooldownRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewCooldownRegistry creates an empty registry.
func NewCooldownRegistry() *CooldownRegistry {
	return &CooldownRegistry{entries: make(map[string]time.Time)}
}

// Set records a suspension window for a symbol, pruning expired
// entries while the lock is held.
func (r *CooldownRegistry) Set(symbol string, until time.Time, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sym, t := range r.entries {
		if !t.After(now) {
			delete(r.entries, sym)
		}
	}
	r.entries[symbol] = until
}

// Active reports whether the symbol has an unexpired cooldown.
func (r *CooldownRegistry) Active(symbol string, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	until, ok := r.entries[symbol]
	return ok && until.After(now)
}

// Remaining returns how long the symbol's cooldown still runs, or zero.
func (r *CooldownRegistry) Remaining(symbol string, now time.Time) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	until, ok := r.entries[symbol]
	if !ok || !until.After(now) {
		return 0
	}
	return until.Sub(now)
}
