package risk

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/Alias1177/Strategist/internal/regime"
)

func TestPositionSizeDegenerateInputs(t *testing.T) {
	mgr := NewManager(Config{}, nil, nil)

	tests := []struct {
		name         string
		entry        float64
		stop         float64
		targetProfit float64
	}{
		{"стоп равен входу", 100, 100, 50},
		{"нулевая цель", 100, 98, 0},
		{"отрицательная цель", 100, 98, -10},
		{"нулевой вход", 0, -2, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mgr.PositionSize(tt.entry, tt.stop, tt.targetProfit, 5, "EUR/USD", "5min"); got != 0 {
				t.Errorf("PositionSize = %v, want 0", got)
			}
		})
	}
}

func TestPositionSizeMonotonicInTarget(t *testing.T) {
	mgr := NewManager(Config{}, nil, nil)

	prev := 0.0
	for _, target := range []float64{10, 20, 50, 100} {
		size := mgr.PositionSize(100, 98, target, 1000, "EUR/USD", "5min")
		if size <= prev {
			t.Fatalf("size %v for target %v not greater than %v", size, target, prev)
		}
		prev = size
	}
}

func TestPositionSizeRiskCap(t *testing.T) {
	mgr := NewManager(Config{}, nil, nil)

	// Risk per unit 2, cap 1% of a 100 entry: at most 0.5 units however
	// large the profit target.
	size := mgr.PositionSize(100, 98, 1000, 1, "EUR/USD", "5min")
	if math.Abs(size-0.5) > 1e-9 {
		t.Errorf("size = %v, want 0.5 (capped)", size)
	}

	// Under the cap the base sizing applies untouched
	size = mgr.PositionSize(100, 98, 0.5, 1, "EUR/USD", "5min")
	if math.Abs(size-0.25) > 1e-9 {
		t.Errorf("size = %v, want 0.25", size)
	}
}

func TestPositionSizeAppliesRegimeScale(t *testing.T) {
	params, err := NewParamStore(filepath.Join(t.TempDir(), "params.json"))
	if err != nil {
		t.Fatalf("NewParamStore: %v", err)
	}
	clf := regime.New(regime.Config{}, nil)
	mgr := NewManager(Config{}, clf, params)

	// Before any classification there is no snapshot to scale by
	size := mgr.PositionSize(100, 98, 2, 100, "EUR/USD", "5min")
	if math.Abs(size-1.0) > 1e-9 {
		t.Errorf("unclassified size = %v, want 1.0", size)
	}

	// A ranging classification scales subsequent sizing by 0.8
	clf.Classify(generateTestCandles(100, flatNoise), "EUR/USD", "5min")
	size = mgr.PositionSize(100, 98, 2, 100, "EUR/USD", "5min")
	if math.Abs(size-0.8) > 1e-9 {
		t.Errorf("ranging size = %v, want 0.8", size)
	}

	// Other instruments keep the unscaled size
	size = mgr.PositionSize(100, 98, 2, 100, "GBP/USD", "5min")
	if math.Abs(size-1.0) > 1e-9 {
		t.Errorf("other-instrument size = %v, want 1.0", size)
	}
}
