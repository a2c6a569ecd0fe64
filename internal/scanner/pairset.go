package scanner

import (
	"sort"
	"sync"

	"cryptoScannerBot/internal/domain"
)

// PairSet is the monitored-pair registry. Discovery and the scorer are
// the single logical writer (both run on the engine loop); snapshots
// serve concurrent readers.
type PairSet struct {
	mu    sync.RWMutex
	pairs map[string]*domain.ScannedPair
}

// NewPairSet creates an empty registry.
func NewPairSet() *PairSet {
	return &PairSet{pairs: make(map[string]*domain.ScannedPair)}
}

// Get returns the live record for a symbol, or nil. The returned
// pointer must only be mutated on the engine loop.
func (ps *PairSet) Get(symbol string) *domain.ScannedPair {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.pairs[symbol]
}

// Contains reports whether a symbol is monitored.
func (ps *PairSet) Contains(symbol string) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	_, ok := ps.pairs[symbol]
	return ok
}

// Symbols returns the monitored symbols in sorted order.
func (ps *PairSet) Symbols() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]string, 0, len(ps.pairs))
	for sym := range ps.pairs {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of monitored pairs.
func (ps *PairSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.pairs)
}

// Snapshot returns copies of all records, sorted by symbol, for
// emission to subscribers.
func (ps *PairSet) Snapshot() []domain.ScannedPair {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]domain.ScannedPair, 0, len(ps.pairs))
	for _, p := range ps.pairs {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Apply merges a discovery result set. Existing pairs keep their live
// fields (price, real-time indicators, score) and only have the
// discovery-sourced fields overwritten; new symbols enter with
// defaults; symbols absent from the result leave the monitored set.
// Returns the symbols that were removed.
func (ps *PairSet) Apply(results []DiscoveryResult) (removed []string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	seen := make(map[string]bool, len(results))
	for _, res := range results {
		seen[res.Symbol] = true
		pair, ok := ps.pairs[res.Symbol]
		if !ok {
			pair = domain.NewScannedPair(res.Symbol)
			pair.Price = res.LastPrice
			ps.pairs[res.Symbol] = pair
		}
		pair.QuoteVolume = res.QuoteVolume
		pair.Regime = res.Regime
		pair.HourlyTrend = res.HourlyTrend
		if res.Hydrated {
			pair.NeedsHydration = false
		}
	}

	for sym := range ps.pairs {
		if !seen[sym] {
			delete(ps.pairs, sym)
			removed = append(removed, sym)
		}
	}
	sort.Strings(removed)
	return removed
}
