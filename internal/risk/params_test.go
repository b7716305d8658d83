package risk

import (
	"path/filepath"
	"testing"

	"github.com/Alias1177/Strategist/models"
)

func TestNewParamStoreSeedsAllRegimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	store, err := NewParamStore(path)
	if err != nil {
		t.Fatalf("NewParamStore: %v", err)
	}

	all := store.All()
	for _, r := range models.AllRegimes() {
		if _, ok := all[r]; !ok {
			t.Errorf("seeded store missing regime %s", r)
		}
	}
}

func TestParamStoreGetFallsBack(t *testing.T) {
	store, err := NewParamStore(filepath.Join(t.TempDir(), "params.json"))
	if err != nil {
		t.Fatalf("NewParamStore: %v", err)
	}

	got := store.Get(models.Regime("NONSENSE"))
	want := DefaultParams()[models.RegimeRanging]
	if got != want {
		t.Errorf("unknown regime resolved to %+v, want ranging defaults %+v", got, want)
	}
}

func TestParamStoreReplaceAllPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	store, err := NewParamStore(path)
	if err != nil {
		t.Fatalf("NewParamStore: %v", err)
	}

	next := store.All()
	tuned := next[models.RegimeVolatile]
	tuned.PositionScale = 0.55
	tuned.MinRiskReward = 2.75
	next[models.RegimeVolatile] = tuned
	if err := store.ReplaceAll(next); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	reopened, err := NewParamStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Get(models.RegimeVolatile)
	if got.PositionScale != 0.55 || got.MinRiskReward != 2.75 {
		t.Errorf("reopened volatile params = %+v, want tuned values", got)
	}
}

func TestParamStoreReplaceAllIsReplaceNotPatch(t *testing.T) {
	store, err := NewParamStore(filepath.Join(t.TempDir(), "params.json"))
	if err != nil {
		t.Fatalf("NewParamStore: %v", err)
	}

	only := map[models.Regime]models.RiskParameters{
		models.RegimeBullishTrend: {MinRiskReward: 1.8, MaxDrawdownPercent: 2.2, PositionScale: 1.1, StopLossScale: 1.0},
	}
	if err := store.ReplaceAll(only); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	if got := len(store.All()); got != 1 {
		t.Fatalf("after replace store holds %d regimes, want 1", got)
	}
	// The dropped regimes resolve through the defaults chain
	got := store.Get(models.RegimeRanging)
	if got != DefaultParams()[models.RegimeRanging] {
		t.Errorf("dropped regime resolved to %+v, want ranging defaults", got)
	}
}
