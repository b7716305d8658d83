package planner

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alias1177/Strategist/internal/playbook"
	"github.com/Alias1177/Strategist/internal/regime"
	"github.com/Alias1177/Strategist/internal/risk"
	"github.com/Alias1177/Strategist/models"
)

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
	}
	return candles
}

func withTimestamp(i int, c models.Candle) models.Candle {
	c.Timestamp = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
	c.Volume = 1000
	return c
}

// bullishBar rises one point per bar with a 1.5-point range, so the
// true range (and ATR) settles at 1.75 including the overnight gap.
func bullishBar(i int) models.Candle {
	c := 100 + float64(i)
	return withTimestamp(i, models.Candle{Close: c, High: c + 0.75, Low: c - 0.75})
}

func rangingBar(i int) models.Candle {
	c := 100 + float64(i%3)*0.1
	return withTimestamp(i, models.Candle{Close: c, High: c + 0.2, Low: c - 0.2})
}

func newTestStore(t *testing.T) *playbook.Store {
	t.Helper()
	store, err := playbook.NewStore(filepath.Join(t.TempDir(), "playbook.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestPlanTradeBullishTrendEndToEnd(t *testing.T) {
	clf := regime.New(regime.Config{}, nil)
	planner := New(Config{}, clf, newTestStore(t), nil)
	candles := generateTestCandles(100, bullishBar)

	plan := planner.PlanTrade(candles, 200, "EUR/USD", "5min", models.SideLong, "")

	if plan.Regime != models.RegimeBullishTrend {
		t.Fatalf("regime = %s, want BULLISH_TREND", plan.Regime)
	}
	if plan.Strategy != "trend-following" {
		t.Errorf("strategy = %q, want trend-following", plan.Strategy)
	}
	if plan.Side != models.SideLong {
		t.Errorf("side = %q, want LONG", plan.Side)
	}
	approx(t, "stop", plan.StopLoss, 196.5) // entry - 2 x ATR(1.75)
	if len(plan.TakeProfits) != 2 {
		t.Fatalf("targets = %v, want two levels", plan.TakeProfits)
	}
	// First target at 2R, second the 1.618 extension of the same risk
	approx(t, "first target", plan.TakeProfits[0], 207)
	approx(t, "second target", plan.TakeProfits[1], 200+1.618*3.5)
	approx(t, "risk:reward", plan.RiskReward, 2.0)
	if plan.Leverage != 3 {
		t.Errorf("leverage = %v, want 3", plan.Leverage)
	}
	if plan.RiskTier != models.TierModerateHigh {
		t.Errorf("tier = %v, want MODERATE_HIGH", plan.RiskTier)
	}

	// The plan must survive the downstream risk gates as-is
	mgr := risk.NewManager(risk.Config{}, nil, nil)
	ok, reasons := mgr.IsSafeTrade(candles, plan.EntryPrice, plan.StopLoss, plan.TakeProfits[0], 1_000_000, "EUR/USD", "5min")
	if !ok {
		t.Errorf("plan rejected by risk manager: %v", reasons)
	}
}

func TestPlanTradeRangeBoundaryRules(t *testing.T) {
	planner := New(Config{}, nil, newTestStore(t), nil)
	candles := generateTestCandles(100, rangingBar)

	plan := planner.PlanTrade(candles, 100, "EUR/USD", "5min", models.SideLong, models.RegimeRanging)

	// Stop at the 20-bar envelope low, first target at the envelope
	// high, second at 1.5R on the same basis
	approx(t, "stop", plan.StopLoss, 99.8)
	approx(t, "first target", plan.TakeProfits[0], 100.4)
	approx(t, "second target", plan.TakeProfits[1], 100.3)
	approx(t, "risk:reward", plan.RiskReward, 2.0)
	if plan.Strategy != "range-fade" {
		t.Errorf("strategy = %q, want range-fade", plan.Strategy)
	}
}

func TestPlanTradeSwingPointStop(t *testing.T) {
	planner := New(Config{}, nil, newTestStore(t), nil)
	// Flat tape with one confirmed swing low inside the trailing 10 bars
	candles := generateTestCandles(100, func(i int) models.Candle {
		c := models.Candle{Close: 100, High: 100.1, Low: 99.9}
		if i == 95 {
			c.Low = 98.5
		}
		return withTimestamp(i, c)
	})

	plan := planner.PlanTrade(candles, 100, "EUR/USD", "5min", models.SideLong, models.RegimeReversal)

	approx(t, "stop", plan.StopLoss, 98.5)
	approx(t, "first target", plan.TakeProfits[0], 103) // 2R on 1.5 risk
	approx(t, "second target", plan.TakeProfits[1], 100+1.272*1.5)
	if plan.Strategy != "counter-trend" {
		t.Errorf("strategy = %q, want counter-trend", plan.Strategy)
	}
	if plan.RiskTier != models.TierHigh {
		t.Errorf("tier = %v, want HIGH", plan.RiskTier)
	}
}

func TestPlanTradeShortSide(t *testing.T) {
	planner := New(Config{}, nil, newTestStore(t), nil)
	candles := generateTestCandles(100, bullishBar)

	plan := planner.PlanTrade(candles, 200, "EUR/USD", "5min", models.SideShort, models.RegimeBullishTrend)

	approx(t, "stop", plan.StopLoss, 203.5) // entry + 2 x ATR, above for a short
	if plan.StopLoss <= plan.EntryPrice {
		t.Fatal("short stop must sit above the entry")
	}
	approx(t, "first target", plan.TakeProfits[0], 193)
	approx(t, "second target", plan.TakeProfits[1], 200-1.618*3.5)
	approx(t, "risk:reward", plan.RiskReward, 2.0)
}

func TestPlanTradeDegenerateFallsBackToFixedPercent(t *testing.T) {
	planner := New(Config{}, nil, nil, nil)
	candles := generateTestCandles(10, rangingBar)

	plan := planner.PlanTrade(candles, 100, "EUR/USD", "5min", models.SideLong, "")

	if plan.Regime != models.RegimeRanging {
		t.Errorf("regime = %s, want RANGING default", plan.Regime)
	}
	approx(t, "stop", plan.StopLoss, 98) // flat 2 percent
	if len(plan.TakeProfits) != 1 {
		t.Fatalf("targets = %v, want single fallback level", plan.TakeProfits)
	}
	approx(t, "target", plan.TakeProfits[0], 104)
	approx(t, "risk:reward", plan.RiskReward, 2.0)
}

func TestPlanTradeAppliesStopScale(t *testing.T) {
	params, err := risk.NewParamStore(filepath.Join(t.TempDir(), "params.json"))
	if err != nil {
		t.Fatalf("NewParamStore: %v", err)
	}
	planner := New(Config{}, nil, newTestStore(t), params)
	candles := generateTestCandles(100, rangingBar)

	// Seeded ranging stop scale is 0.9: the 0.2 envelope distance tightens
	// to 0.18 and the risk-multiple target follows the scaled basis.
	plan := planner.PlanTrade(candles, 100, "EUR/USD", "5min", models.SideLong, models.RegimeRanging)

	approx(t, "stop", plan.StopLoss, 99.82)
	approx(t, "second target", plan.TakeProfits[1], 100+1.5*0.18)
}

func TestPlanTradeSynthesizesTargetWhenPlaybookHasNone(t *testing.T) {
	store := newTestStore(t)
	entry := store.Get(models.RegimeCalm)
	entry.TakeProfits = nil
	if err := store.Upsert(models.RegimeCalm, entry); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	planner := New(Config{}, nil, store, nil)
	candles := generateTestCandles(100, rangingBar)

	plan := planner.PlanTrade(candles, 100, "EUR/USD", "5min", models.SideLong, models.RegimeCalm)

	approx(t, "stop", plan.StopLoss, 98) // calm playbook keeps its fixed 2 percent
	if len(plan.TakeProfits) != 1 {
		t.Fatalf("targets = %v, want synthesized fallback", plan.TakeProfits)
	}
	approx(t, "target", plan.TakeProfits[0], 104)
}

func TestPlanTradeInvalidOverrideFallsThrough(t *testing.T) {
	planner := New(Config{}, nil, newTestStore(t), nil)
	candles := generateTestCandles(100, rangingBar)

	plan := planner.PlanTrade(candles, 100, "EUR/USD", "5min", models.SideLong, models.Regime("NONSENSE"))

	// No classifier attached: the unknown override resolves to ranging
	if plan.Regime != models.RegimeRanging {
		t.Errorf("regime = %s, want RANGING", plan.Regime)
	}
}
