package risk

import (
	"math"
)

// PositionSize converts a profit target into a unit quantity: the base
// size is targetProfit per unit of price risk, capped so the total risk
// stays under maxRiskPercent of the entry notional, then scaled by the
// instrument's current regime factor when one is known. Degenerate input
// (zero risk distance, non-positive target) sizes to 0, never negative.
func (m *Manager) PositionSize(entry, stop, targetProfit, maxRiskPercent float64, symbol, timeframe string) float64 {
	riskPerUnit := math.Abs(entry - stop)
	if riskPerUnit <= 0 || targetProfit <= 0 || entry <= 0 {
		return 0
	}

	size := targetProfit / riskPerUnit

	if maxRiskPercent > 0 {
		limit := maxRiskPercent / 100 * entry / riskPerUnit
		if size > limit {
			size = limit
		}
	}

	if m.classifier != nil && m.params != nil {
		if snap, ok := m.classifier.Latest(symbol, timeframe); ok {
			if scale := m.params.Get(snap.Regime).PositionScale; scale > 0 {
				size *= scale
			}
		}
	}

	return size
}
