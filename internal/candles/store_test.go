package candles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoScannerBot/internal/domain"
)

var baseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newCandle(symbol string, idx int, close float64) *domain.Candle {
	return &domain.Candle{
		Symbol:    symbol,
		Interval:  "1m",
		OpenTime:  baseTime.Add(time.Duration(idx) * time.Minute),
		CloseTime: baseTime.Add(time.Duration(idx+1) * time.Minute),
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    100,
	}
}

func TestUpsertAppendsInOrder(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.Upsert(newCandle("BTCUSDT", i, float64(100+i)))
	}

	got := s.Get("BTCUSDT", "1m")
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].OpenTime.After(got[i-1].OpenTime), "open times must be strictly increasing")
	}
}

func TestUpsertReplacesLiveCandle(t *testing.T) {
	s := NewStore()
	s.Upsert(newCandle("BTCUSDT", 0, 100))
	s.Upsert(newCandle("BTCUSDT", 1, 101))

	// Same open time as the last stored candle: an in-progress update.
	update := newCandle("BTCUSDT", 1, 105)
	s.Upsert(update)

	got := s.Get("BTCUSDT", "1m")
	require.Len(t, got, 2)
	assert.InDelta(t, 105.0, got[1].Close, 1e-9)
}

func TestUpsertIgnoresStaleCandle(t *testing.T) {
	s := NewStore()
	s.Upsert(newCandle("BTCUSDT", 0, 100))
	s.Upsert(newCandle("BTCUSDT", 5, 105))

	s.Upsert(newCandle("BTCUSDT", 3, 103))

	got := s.Get("BTCUSDT", "1m")
	require.Len(t, got, 2)
	assert.InDelta(t, 105.0, got[1].Close, 1e-9)
}

func TestUpsertEvictsPastBound(t *testing.T) {
	s := NewStore()
	total := MaxSeriesLength + 50
	for i := 0; i < total; i++ {
		s.Upsert(newCandle("BTCUSDT", i, float64(i)))
	}

	got := s.Get("BTCUSDT", "1m")
	require.Len(t, got, MaxSeriesLength)
	assert.Equal(t, baseTime.Add(50*time.Minute), got[0].OpenTime, "oldest candles must be evicted first")
	assert.Equal(t, baseTime.Add(time.Duration(total-1)*time.Minute), got[len(got)-1].OpenTime)
}

func TestSeriesAreIndependent(t *testing.T) {
	s := NewStore()
	s.Upsert(newCandle("BTCUSDT", 0, 100))
	eth := newCandle("ETHUSDT", 0, 2000)
	s.Upsert(eth)
	hourly := newCandle("BTCUSDT", 0, 100)
	hourly.Interval = "1h"
	s.Upsert(hourly)

	assert.Equal(t, 1, s.Len("BTCUSDT", "1m"))
	assert.Equal(t, 1, s.Len("BTCUSDT", "1h"))
	assert.Equal(t, 1, s.Len("ETHUSDT", "1m"))
	assert.Equal(t, 0, s.Len("ETHUSDT", "1h"))
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Upsert(newCandle("BTCUSDT", 0, 100))
	s.Upsert(newCandle("BTCUSDT", 1, 101))

	got := s.Get("BTCUSDT", "1m")
	got[0] = newCandle("BTCUSDT", 9, 999)

	again := s.Get("BTCUSDT", "1m")
	assert.InDelta(t, 100.0, again[0].Close, 1e-9, "caller mutation must not leak into the store")
}

func TestSeed(t *testing.T) {
	s := NewStore()
	history := make([]*domain.Candle, 10)
	for i := range history {
		history[i] = newCandle("BTCUSDT", i, float64(100+i))
	}
	s.Seed(history)
	assert.Equal(t, 10, s.Len("BTCUSDT", "1m"))

	// Re-seeding the same window must not duplicate anything.
	s.Seed(history)
	assert.Equal(t, 10, s.Len("BTCUSDT", "1m"))
}

func TestDrop(t *testing.T) {
	s := NewStore()
	s.Upsert(newCandle("BTCUSDT", 0, 100))
	hourly := newCandle("BTCUSDT", 0, 100)
	hourly.Interval = "1h"
	s.Upsert(hourly)
	s.Upsert(newCandle("ETHUSDT", 0, 2000))

	s.Drop("BTCUSDT")

	assert.Equal(t, 0, s.Len("BTCUSDT", "1m"))
	assert.Equal(t, 0, s.Len("BTCUSDT", "1h"))
	assert.Equal(t, 1, s.Len("ETHUSDT", "1m"))
}
