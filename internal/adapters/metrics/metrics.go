// Package metrics exposes the bot's observability counters in
// Prometheus exposition format:
//   - bot_scores_total{score}: scoring outcomes by score
//   - bot_positions_opened_total: positions opened
//   - bot_positions_closed_total{reason}: exits split by reason
//   - bot_open_positions: current open position count
//   - bot_virtual_balance: current virtual balance
//   - bot_pairs_monitored: monitored pair count
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements ports.Metrics backed by a dedicated registry.
type Metrics struct {
	registry        *prometheus.Registry
	scores          *prometheus.CounterVec
	positionsOpened prometheus.Counter
	positionsClosed *prometheus.CounterVec
	openPositions   prometheus.Gauge
	balance         prometheus.Gauge
	pairsMonitored  prometheus.Gauge
}

// New creates and registers the bot metric set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scores: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bot_scores_total", Help: "Scoring outcomes by score"},
			[]string{"score"},
		),
		positionsOpened: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "bot_positions_opened_total", Help: "Positions opened"},
		),
		positionsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bot_positions_closed_total", Help: "Positions closed, split by reason"},
			[]string{"reason"},
		),
		openPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "bot_open_positions", Help: "Current open position count"},
		),
		balance: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "bot_virtual_balance", Help: "Current virtual balance in quote currency"},
		),
		pairsMonitored: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "bot_pairs_monitored", Help: "Monitored pair count"},
		),
	}
	m.registry.MustRegister(m.scores, m.positionsOpened, m.positionsClosed, m.openPositions, m.balance, m.pairsMonitored)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ScoreEvaluated(score string)     { m.scores.WithLabelValues(score).Inc() }
func (m *Metrics) PositionOpened()                 { m.positionsOpened.Inc() }
func (m *Metrics) PositionClosed(reason string)    { m.positionsClosed.WithLabelValues(reason).Inc() }
func (m *Metrics) SetOpenPositions(n int)          { m.openPositions.Set(float64(n)) }
func (m *Metrics) SetBalance(balance float64)      { m.balance.Set(balance) }
func (m *Metrics) SetPairsMonitored(n int)         { m.pairsMonitored.Set(float64(n)) }
