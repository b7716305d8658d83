package optimizer

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/models"
)

// Tuning thresholds and multipliers. The adjustments are deliberately
// small per run; the clamp bounds in models keep repeated runs from
// drifting the parameters anywhere unreasonable.
const (
	minTradesForTuning = 10

	highWinRate  = 0.60
	lowWinRate   = 0.40
	strongPayoff = 1.5 // avg win / avg loss above this relaxes the floor
	weakPayoff   = 0.8

	positionLoosen  = 1.1
	positionTighten = 0.9
	stopLoosen      = 1.05
	floorTighten    = 1.1
	floorRelax      = 0.95
	ceilingTighten  = 0.9
)

// Optimizer nudges per-regime risk parameters from realized performance.
// It is pure: callers feed it the accumulated records and the current
// parameter set and persist the result themselves.
type Optimizer struct {
	minTrades int
	logger    zerolog.Logger
}

// New builds an Optimizer. minTrades <= 0 selects the default threshold
// of 10 realized trades per regime.
func New(minTrades int) *Optimizer {
	if minTrades <= 0 {
		minTrades = minTradesForTuning
	}
	return &Optimizer{
		minTrades: minTrades,
		logger:    log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize returns an adjusted copy of current. Regimes without enough
// realized trades pass through unchanged; every adjusted parameter set
// is clamped to the global bounds.
func (o *Optimizer) Optimize(perf map[models.Regime]models.RegimePerformance, current map[models.Regime]models.RiskParameters) map[models.Regime]models.RiskParameters {
	out := make(map[models.Regime]models.RiskParameters, len(current))

	for reg, params := range current {
		stats, ok := perf[reg]
		if !ok || stats.Trades < o.minTrades {
			out[reg] = params
			continue
		}
		out[reg] = o.adjust(reg, stats, params)
	}
	return out
}

func (o *Optimizer) adjust(reg models.Regime, stats models.RegimePerformance, p models.RiskParameters) models.RiskParameters {
	winRate := stats.WinRate()

	switch {
	case winRate > highWinRate:
		p.PositionScale *= positionLoosen
		p.StopLossScale *= stopLoosen
	case winRate < lowWinRate:
		p.PositionScale *= positionTighten
		p.MinRiskReward *= floorTighten
		p.MaxDrawdownPercent *= ceilingTighten
	}

	// Payoff ratio needs at least one realized loss to be meaningful
	if avgLoss := stats.AvgLoss(); avgLoss > 0 {
		switch payoff := stats.AvgWin() / avgLoss; {
		case payoff > strongPayoff:
			p.MinRiskReward *= floorRelax
		case payoff < weakPayoff:
			p.MinRiskReward *= floorTighten
		}
	}

	p = p.Clamp()

	o.logger.Info().
		Str("regime", string(reg)).
		Int("trades", stats.Trades).
		Float64("win_rate", winRate).
		Float64("position_scale", p.PositionScale).
		Float64("min_risk_reward", p.MinRiskReward).
		Float64("max_drawdown", p.MaxDrawdownPercent).
		Msg("risk parameters adjusted")

	return p
}
