package risk

import (
	"sync"
	"testing"
	"time"
)

func TestSuppressionWithinWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewSuppressionCache(4*time.Hour, 0.03)
	cache.now = func() time.Time { return base }

	if !cache.Commit("EUR/USD", "5min", 100) {
		t.Fatal("first commit must win")
	}

	cache.now = func() time.Time { return base.Add(10 * time.Minute) }

	tests := []struct {
		name    string
		entry   float64
		blocked bool
	}{
		{"same price", 100, true},
		{"half percent move", 100.5, true},
		{"just under threshold", 102.9, true},
		{"threshold move releases", 103.1, false},
		{"large move down releases", 96.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, _ := cache.Suppressed("EUR/USD", "5min", tt.entry)
			if blocked != tt.blocked {
				t.Errorf("Suppressed(%v) = %v, want %v", tt.entry, blocked, tt.blocked)
			}
		})
	}
}

func TestSuppressionExpiresWithWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewSuppressionCache(4*time.Hour, 0.03)
	cache.now = func() time.Time { return base }

	cache.Commit("EUR/USD", "5min", 100)

	cache.now = func() time.Time { return base.Add(4*time.Hour + time.Second) }
	if blocked, _ := cache.Suppressed("EUR/USD", "5min", 100); blocked {
		t.Error("record older than the window must not suppress")
	}
}

func TestSuppressionKeysAreIndependent(t *testing.T) {
	cache := NewSuppressionCache(4*time.Hour, 0.03)
	cache.Commit("EUR/USD", "5min", 100)

	if blocked, _ := cache.Suppressed("EUR/USD", "1h", 100); blocked {
		t.Error("other timeframe must not be suppressed")
	}
	if blocked, _ := cache.Suppressed("GBP/USD", "5min", 100); blocked {
		t.Error("other symbol must not be suppressed")
	}
}

func TestCommitIsCheckAndSet(t *testing.T) {
	cache := NewSuppressionCache(4*time.Hour, 0.03)

	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- cache.Commit("EUR/USD", "5min", 100)
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Errorf("%d concurrent commits won, want exactly 1", won)
	}
}
