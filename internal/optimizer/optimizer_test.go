package optimizer

import (
	"math"
	"testing"

	"github.com/Alias1177/Strategist/models"
)

func baseParams() map[models.Regime]models.RiskParameters {
	return map[models.Regime]models.RiskParameters{
		models.RegimeBullishTrend: {MinRiskReward: 2.0, MaxDrawdownPercent: 2.0, PositionScale: 1.0, StopLossScale: 1.0},
	}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestOptimizeHighWinRateLoosens(t *testing.T) {
	// 15 wins in 20 trades, balanced payoff so only the win-rate rule fires
	perf := map[models.Regime]models.RegimePerformance{
		models.RegimeBullishTrend: {
			Regime: models.RegimeBullishTrend,
			Trades: 20, Wins: 15, Losses: 5,
			GrossProfit: 1500, GrossLoss: 500,
		},
	}
	prior := baseParams()

	got := New(0).Optimize(perf, prior)[models.RegimeBullishTrend]

	if got.PositionScale <= prior[models.RegimeBullishTrend].PositionScale {
		t.Fatalf("position scale %v did not increase from %v", got.PositionScale, prior[models.RegimeBullishTrend].PositionScale)
	}
	approx(t, "position scale", got.PositionScale, 1.1)
	approx(t, "stop scale", got.StopLossScale, 1.05)
	approx(t, "risk:reward floor", got.MinRiskReward, 2.0)
	approx(t, "drawdown ceiling", got.MaxDrawdownPercent, 2.0)
}

func TestOptimizeLowWinRateTightens(t *testing.T) {
	// 5 wins in 20 trades, payoff exactly 1.0 isolates the win-rate rule
	perf := map[models.Regime]models.RegimePerformance{
		models.RegimeBullishTrend: {
			Regime: models.RegimeBullishTrend,
			Trades: 20, Wins: 5, Losses: 15,
			GrossProfit: 500, GrossLoss: 1500,
		},
	}

	got := New(0).Optimize(perf, baseParams())[models.RegimeBullishTrend]

	approx(t, "position scale", got.PositionScale, 0.9)
	approx(t, "risk:reward floor", got.MinRiskReward, 2.2)
	approx(t, "drawdown ceiling", got.MaxDrawdownPercent, 1.8)
	approx(t, "stop scale", got.StopLossScale, 1.0)
}

func TestOptimizePayoffAdjustsFloor(t *testing.T) {
	// Payoff 2.0 relaxes the floor, 0.5 tightens it, 1.0 leaves it alone
	tests := []struct {
		name      string
		gross     float64 // winning side, 10 wins against 2000 gross loss
		wantFloor float64
	}{
		{"сильный перевес прибыли", 4000, 1.9},
		{"слабый перевес прибыли", 1000, 2.2},
		{"сбалансированный результат", 2000, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Half wins keeps the win-rate rules quiet
			perf := map[models.Regime]models.RegimePerformance{
				models.RegimeBullishTrend: {
					Regime: models.RegimeBullishTrend,
					Trades: 20, Wins: 10, Losses: 10,
					GrossProfit: tt.gross, GrossLoss: 2000,
				},
			}

			got := New(0).Optimize(perf, baseParams())[models.RegimeBullishTrend]
			approx(t, "risk:reward floor", got.MinRiskReward, tt.wantFloor)
		})
	}
}

func TestOptimizeBelowThresholdKeepsParams(t *testing.T) {
	perf := map[models.Regime]models.RegimePerformance{
		models.RegimeBullishTrend: {
			Regime: models.RegimeBullishTrend,
			Trades: 9, Wins: 9,
			GrossProfit: 900,
		},
	}
	prior := baseParams()

	got := New(0).Optimize(perf, prior)

	if got[models.RegimeBullishTrend] != prior[models.RegimeBullishTrend] {
		t.Errorf("below-threshold regime changed: %+v", got[models.RegimeBullishTrend])
	}
}

func TestOptimizeRegimeWithoutRecordsPassesThrough(t *testing.T) {
	prior := map[models.Regime]models.RiskParameters{
		models.RegimeCalm: {MinRiskReward: 1.7, MaxDrawdownPercent: 2.5, PositionScale: 1.2, StopLossScale: 0.8},
	}

	got := New(0).Optimize(nil, prior)

	if got[models.RegimeCalm] != prior[models.RegimeCalm] {
		t.Errorf("regime without records changed: %+v", got[models.RegimeCalm])
	}
}

func TestOptimizeNeverEscapesClampBounds(t *testing.T) {
	// Extreme record: all wins, enormous payoff. Feed the output back in
	// repeatedly; every parameter must stay inside the global bounds.
	perf := map[models.Regime]models.RegimePerformance{
		models.RegimeBullishTrend: {
			Regime: models.RegimeBullishTrend,
			Trades: 100, Wins: 99, Losses: 1,
			GrossProfit: 1e9, GrossLoss: 1,
		},
	}
	params := baseParams()
	opt := New(0)

	for i := 0; i < 25; i++ {
		params = opt.Optimize(perf, params)
		p := params[models.RegimeBullishTrend]
		if p.MinRiskReward < models.RiskRewardFloor || p.MinRiskReward > models.RiskRewardCeil {
			t.Fatalf("iteration %d: risk:reward floor %v out of bounds", i, p.MinRiskReward)
		}
		if p.MaxDrawdownPercent < models.DrawdownFloorPct || p.MaxDrawdownPercent > models.DrawdownCeilPct {
			t.Fatalf("iteration %d: drawdown ceiling %v out of bounds", i, p.MaxDrawdownPercent)
		}
		if p.PositionScale < models.PositionScaleMin || p.PositionScale > models.PositionScaleMax {
			t.Fatalf("iteration %d: position scale %v out of bounds", i, p.PositionScale)
		}
		if p.StopLossScale < models.StopScaleMin || p.StopLossScale > models.StopScaleMax {
			t.Fatalf("iteration %d: stop scale %v out of bounds", i, p.StopLossScale)
		}
	}

	// The drift must saturate at the cap, not wander below it
	if got := params[models.RegimeBullishTrend].PositionScale; got != models.PositionScaleMax {
		t.Errorf("position scale after saturation = %v, want %v", got, models.PositionScaleMax)
	}
}
