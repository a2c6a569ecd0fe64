package domain

import "strings"

// BotSettings is the flat, operator-editable trading configuration.
// Read-mostly and replaced atomically on update; core components read
// one snapshot per evaluation cycle.
type BotSettings struct {
	// Pair discovery
	MinVolumeUSD  float64 `yaml:"min_volume_usd"`
	ExcludedPairs string  `yaml:"excluded_pairs"` // comma-separated symbol list

	// Signal filters
	MinVolatilityPct      float64 `yaml:"min_volatility_pct"`
	UseMarketRegimeFilter bool    `yaml:"use_market_regime_filter"`
	UseMTFConfirmation    bool    `yaml:"use_mtf_confirmation"`
	UseVolumeConfirmation bool    `yaml:"use_volume_confirmation"`
	RequireStrongBuy      bool    `yaml:"require_strong_buy"`

	// Stops and targets
	UseATRStopLoss   bool           `yaml:"use_atr_stop_loss"`
	ATRMultiplier    float64        `yaml:"atr_multiplier"`
	StopLossPct      float64        `yaml:"stop_loss_pct"`
	TakeProfitPct    float64        `yaml:"take_profit_pct"`
	UseTrailingStop  bool           `yaml:"use_trailing_stop_loss"`
	TrailingStopPct  float64        `yaml:"trailing_stop_loss_pct"`
	UseAutoBreakeven bool           `yaml:"use_auto_breakeven"`
	BreakevenStyle   BreakevenStyle `yaml:"breakeven_style"`
	BreakevenTrigger float64        `yaml:"breakeven_trigger"`
	UsePartialTP     bool           `yaml:"use_partial_take_profit"`
	PartialTPTrigger float64        `yaml:"partial_tp_trigger_pct"`
	PartialTPSellQty float64        `yaml:"partial_tp_sell_qty_pct"`

	// Position sizing and capacity
	MaxOpenPositions      int     `yaml:"max_open_positions"`
	PositionSizePct       float64 `yaml:"position_size_pct"`
	UseDynamicSizing      bool    `yaml:"use_dynamic_position_sizing"`
	StrongBuySizePct      float64 `yaml:"strong_buy_position_size_pct"`
	LossCooldownHours     float64 `yaml:"loss_cooldown_hours"`
	SlippagePct           float64 `yaml:"slippage_pct"`
	InitialVirtualBalance float64 `yaml:"initial_virtual_balance"`
}

// DefaultSettings returns the settings used when no snapshot has been
// persisted yet.
func DefaultSettings() *BotSettings {
	return &BotSettings{
		MinVolumeUSD:          1_000_000,
		ExcludedPairs:         "",
		MinVolatilityPct:      0.5,
		UseMarketRegimeFilter: true,
		UseMTFConfirmation:    true,
		UseVolumeConfirmation: true,
		RequireStrongBuy:      false,
		UseATRStopLoss:        true,
		ATRMultiplier:         1.5,
		StopLossPct:           2.0,
		TakeProfitPct:         4.0,
		UseTrailingStop:       true,
		TrailingStopPct:       2.0,
		UseAutoBreakeven:      true,
		BreakevenStyle:        BreakevenStylePercent,
		BreakevenTrigger:      1.0,
		UsePartialTP:          true,
		PartialTPTrigger:      2.0,
		PartialTPSellQty:      50.0,
		MaxOpenPositions:      5,
		PositionSizePct:       10.0,
		UseDynamicSizing:      true,
		StrongBuySizePct:      15.0,
		LossCooldownHours:     4.0,
		SlippagePct:           0.1,
		InitialVirtualBalance: 10_000,
	}
}

// Excluded reports whether a symbol appears in the exclusion list.
func (s *BotSettings) Excluded(symbol string) bool {
	if s.ExcludedPairs == "" {
		return false
	}
	for _, raw := range strings.Split(s.ExcludedPairs, ",") {
		if strings.EqualFold(strings.TrimSpace(raw), symbol) {
			return true
		}
	}
	return false
}

// Clone returns a copy so updates can replace the snapshot atomically.
func (s *BotSettings) Clone() *BotSettings {
	c := *s
	return &c
}
