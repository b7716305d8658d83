package models

import (
	"fmt"
	"sort"
	"time"
)

// Candle represents a single price candle
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume,omitempty"`
}

// Range returns the high-low span of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Regime labels the prevailing market condition of a symbol/timeframe.
type Regime string

const (
	RegimeBullishTrend Regime = "BULLISH_TREND"
	RegimeBearishTrend Regime = "BEARISH_TREND"
	RegimeRanging      Regime = "RANGING"
	RegimeVolatile     Regime = "VOLATILE"
	RegimeCalm         Regime = "CALM"
	RegimeReversal     Regime = "REVERSAL"
)

// AllRegimes lists every regime label in a stable order.
func AllRegimes() []Regime {
	return []Regime{
		RegimeBullishTrend,
		RegimeBearishTrend,
		RegimeRanging,
		RegimeVolatile,
		RegimeCalm,
		RegimeReversal,
	}
}

// Valid reports whether r is one of the known regime labels.
func (r Regime) Valid() bool {
	switch r {
	case RegimeBullishTrend, RegimeBearishTrend, RegimeRanging,
		RegimeVolatile, RegimeCalm, RegimeReversal:
		return true
	}
	return false
}

// ParseRegime converts a stored label back into a Regime.
func ParseRegime(s string) (Regime, error) {
	r := Regime(s)
	if !r.Valid() {
		return RegimeRanging, fmt.Errorf("unknown regime label %q", s)
	}
	return r, nil
}

// Trend direction values used in RegimeSnapshot.
const (
	DirectionBullish = "BULLISH"
	DirectionBearish = "BEARISH"
	DirectionNeutral = "NEUTRAL"
)

// RegimeSnapshot is the result of one classification pass.
type RegimeSnapshot struct {
	Symbol             string    `json:"symbol"`
	Timeframe          string    `json:"timeframe"`
	Regime             Regime    `json:"regime"`
	TrendStrength      float64   `json:"trend_strength"` // smoothed directional index, 0-100
	Direction          string    `json:"direction"`      // BULLISH, BEARISH, NEUTRAL
	Volatility         float64   `json:"volatility"`     // stddev of log returns
	BaselineVolatility float64   `json:"baseline_volatility"`
	Ranging            bool      `json:"ranging"`
	Reversal           bool      `json:"reversal"`
	LowConfidence      bool      `json:"low_confidence"` // set when the series was too short
	Timestamp          time.Time `json:"timestamp"`
}

// StopRuleKind enumerates the supported stop-loss placement rules.
type StopRuleKind string

const (
	StopATRMultiple   StopRuleKind = "ATR_MULTIPLE"
	StopRangeBoundary StopRuleKind = "RANGE_BOUNDARY"
	StopSwingPoint    StopRuleKind = "SWING_POINT"
	StopFixedPercent  StopRuleKind = "FIXED_PERCENT"
)

// StopRule describes how a stop-loss price is derived from the series.
// Value is the rule parameter: the ATR multiple, the percent, or unused.
type StopRule struct {
	Kind  StopRuleKind `json:"kind"`
	Value float64      `json:"value,omitempty"`
}

// TargetRuleKind enumerates the supported take-profit placement rules.
type TargetRuleKind string

const (
	TargetATRMultiple   TargetRuleKind = "ATR_MULTIPLE"
	TargetRangeBoundary TargetRuleKind = "RANGE_BOUNDARY"
	TargetSwingPoint    TargetRuleKind = "SWING_POINT"
	TargetFixedPercent  TargetRuleKind = "FIXED_PERCENT"
	TargetRiskMultiple  TargetRuleKind = "RISK_MULTIPLE"
	TargetFibExtension  TargetRuleKind = "FIB_EXTENSION"
)

// TargetRule describes how a take-profit price is derived.
type TargetRule struct {
	Kind  TargetRuleKind `json:"kind"`
	Value float64        `json:"value,omitempty"`
}

// RiskTier ranks playbook entries from most conservative to most aggressive.
type RiskTier int

const (
	TierLow RiskTier = iota
	TierModerate
	TierModerateHigh
	TierHigh
)

func (t RiskTier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierModerate:
		return "MODERATE"
	case TierModerateHigh:
		return "MODERATE_HIGH"
	case TierHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
}

// MarshalJSON stores the tier as its label so playbook files stay readable.
func (t RiskTier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *RiskTier) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"LOW"`:
		*t = TierLow
	case `"MODERATE"`:
		*t = TierModerate
	case `"MODERATE_HIGH"`:
		*t = TierModerateHigh
	case `"HIGH"`:
		*t = TierHigh
	default:
		return fmt.Errorf("unknown risk tier %s", string(data))
	}
	return nil
}

// EntryFilters hold the market preconditions attached to a playbook entry.
// Zero values mean "no constraint".
type EntryFilters struct {
	MinVolume     float64 `json:"min_volume,omitempty"`
	MinVolatility float64 `json:"min_volatility,omitempty"`
	MaxVolatility float64 `json:"max_volatility,omitempty"`
}

// Allows reports whether current market conditions satisfy the filters.
func (f EntryFilters) Allows(volume24h, volatility float64) bool {
	if f.MinVolume > 0 && volume24h < f.MinVolume {
		return false
	}
	if f.MinVolatility > 0 && volatility < f.MinVolatility {
		return false
	}
	if f.MaxVolatility > 0 && volatility > f.MaxVolatility {
		return false
	}
	return true
}

// PlaybookEntry is the trading recipe for one market regime.
type PlaybookEntry struct {
	Regime      Regime       `json:"regime"`
	Strategy    string       `json:"strategy"`
	Leverage    float64      `json:"leverage"`
	EntryStyle  string       `json:"entry_style"` // e.g. breakout, pullback, fade
	StopLoss    StopRule     `json:"stop_loss"`
	TakeProfits []TargetRule `json:"take_profits"`
	RiskTier    RiskTier     `json:"risk_tier"`
	Filters     EntryFilters `json:"filters"`
}

// RiskParameters are the per-regime knobs the optimizer tunes.
type RiskParameters struct {
	MinRiskReward      float64 `json:"min_risk_reward"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	PositionScale      float64 `json:"position_scale"`
	StopLossScale      float64 `json:"stop_loss_scale"`
}

// Bounds the optimizer may never push parameters past.
const (
	RiskRewardFloor  = 1.5
	RiskRewardCeil   = 4.0
	DrawdownFloorPct = 1.0
	DrawdownCeilPct  = 3.0
	PositionScaleMin = 0.5
	PositionScaleMax = 1.5
	StopScaleMin     = 0.5
	StopScaleMax     = 1.5
)

// Clamp forces every parameter back inside its allowed band.
func (p RiskParameters) Clamp() RiskParameters {
	clamp := func(v, lo, hi float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return RiskParameters{
		MinRiskReward:      clamp(p.MinRiskReward, RiskRewardFloor, RiskRewardCeil),
		MaxDrawdownPercent: clamp(p.MaxDrawdownPercent, DrawdownFloorPct, DrawdownCeilPct),
		PositionScale:      clamp(p.PositionScale, PositionScaleMin, PositionScaleMax),
		StopLossScale:      clamp(p.StopLossScale, StopScaleMin, StopScaleMax),
	}
}

// Trade side values.
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// TradePlan is a fully specified trade proposal. Plans are immutable once
// built; replanning produces a new value.
type TradePlan struct {
	Symbol      string    `json:"symbol"`
	Timeframe   string    `json:"timeframe"`
	Regime      Regime    `json:"regime"`
	Strategy    string    `json:"strategy"`
	Side        string    `json:"side"` // LONG or SHORT
	EntryPrice  float64   `json:"entry_price"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profits"`
	Leverage    float64   `json:"leverage"`
	RiskReward  float64   `json:"risk_reward"` // measured against the first target
	RiskTier    RiskTier  `json:"risk_tier"`
	CreatedAt   time.Time `json:"created_at"`
}

// Trade result values reported back by the execution layer.
const (
	ResultWin       = "WIN"
	ResultLoss      = "LOSS"
	ResultBreakeven = "BREAKEVEN"
)

// TradeOutcome is the execution layer's report on a closed trade.
type TradeOutcome struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Regime    Regime    `json:"regime"`
	Result    string    `json:"result"` // WIN, LOSS, BREAKEVEN
	Profit    float64   `json:"profit"` // signed, account currency
	ClosedAt  time.Time `json:"closed_at"`
}

// RegimePerformance accumulates closed-trade statistics for one regime.
type RegimePerformance struct {
	Regime      Regime  `json:"regime"`
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	GrossProfit float64 `json:"gross_profit"` // sum of winning profits
	GrossLoss   float64 `json:"gross_loss"`   // sum of |losing profits|
}

// Record folds one outcome into the accumulator. Breakeven trades count
// toward Trades but neither Wins nor Losses.
func (p *RegimePerformance) Record(o TradeOutcome) {
	p.Trades++
	switch o.Result {
	case ResultWin:
		p.Wins++
		p.GrossProfit += o.Profit
	case ResultLoss:
		p.Losses++
		if o.Profit < 0 {
			p.GrossLoss += -o.Profit
		} else {
			p.GrossLoss += o.Profit
		}
	}
}

// WinRate returns wins/trades in [0,1], 0 for an empty accumulator.
func (p RegimePerformance) WinRate() float64 {
	if p.Trades == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Trades)
}

// AvgWin returns the mean winning profit, 0 when there were no wins.
func (p RegimePerformance) AvgWin() float64 {
	if p.Wins == 0 {
		return 0
	}
	return p.GrossProfit / float64(p.Wins)
}

// AvgLoss returns the mean absolute losing profit, 0 when no losses.
func (p RegimePerformance) AvgLoss() float64 {
	if p.Losses == 0 {
		return 0
	}
	return p.GrossLoss / float64(p.Losses)
}

// ValidateSeries checks the collaborator contract for candle input:
// non-empty, strictly increasing timestamps, no duplicates.
func ValidateSeries(candles []Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("empty candle series")
	}
	if !sort.SliceIsSorted(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	}) {
		return fmt.Errorf("candle series not sorted by timestamp")
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return fmt.Errorf("duplicate candle timestamp %s", candles[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
