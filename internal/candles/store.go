// Package candles holds the in-memory bounded candle buffers all
// indicator computation reads from.
package candles

import (
	"sync"

	"cryptoScannerBot/internal/domain"
)

// MaxSeriesLength bounds every per-(symbol, interval) series.
const MaxSeriesLength = 200

// Store keeps one FIFO ring of candles per (symbol, interval).
// Timestamps within a series are strictly increasing; an update for
// the most recent open candle replaces the last element.
type Store struct {
	mu     sync.RWMutex
	series map[string][]*domain.Candle
}

// NewStore creates an empty candle store.
func NewStore() *Store {
	return &Store{series: make(map[string][]*domain.Candle)}
}

func seriesKey(symbol, interval string) string {
	return symbol + "|" + interval
}

// Upsert inserts a candle into its series. A candle sharing the last
// stored open time replaces the last element (the live-updating
// current candle); a newer candle is appended, evicting the oldest
// past MaxSeriesLength. Candles older than the last stored one are
// ignored to keep the series strictly increasing.
func (s *Store) Upsert(c *domain.Candle) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey(c.Symbol, c.Interval)
	buf := s.series[key]
	if n := len(buf); n > 0 {
		last := buf[n-1]
		if c.OpenTime.Equal(last.OpenTime) {
			buf[n-1] = c
			return
		}
		if c.OpenTime.Before(last.OpenTime) {
			return
		}
	}
	buf = append(buf, c)
	if len(buf) > MaxSeriesLength {
		buf = buf[len(buf)-MaxSeriesLength:]
	}
	s.series[key] = buf
}

// Seed bulk-loads historical candles (assumed chronological) through
// the same upsert rules, used when hydrating a new symbol.
func (s *Store) Seed(candles []*domain.Candle) {
	for _, c := range candles {
		s.Upsert(c)
	}
}

// Get returns a copy of the current buffer for (symbol, interval),
// possibly shorter than MaxSeriesLength during warm-up. An absent
// series yields an empty slice, never an error.
func (s *Store) Get(symbol, interval string) []*domain.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := s.series[seriesKey(symbol, interval)]
	out := make([]*domain.Candle, len(buf))
	copy(out, buf)
	return out
}

// Len returns the current length of a series.
func (s *Store) Len(symbol, interval string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[seriesKey(symbol, interval)])
}

// Drop removes all series for a symbol, used when discovery evicts it.
func (s *Store) Drop(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.series {
		if len(key) > len(symbol) && key[:len(symbol)] == symbol && key[len(symbol)] == '|' {
			delete(s.series, key)
		}
	}
}
