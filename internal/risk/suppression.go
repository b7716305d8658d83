package risk

import (
	"math"
	"sync"
	"time"
)

// suppressionRecord remembers the last accepted signal for an instrument.
type suppressionRecord struct {
	AlertedAt  time.Time
	EntryPrice float64
}

// SuppressionCache rejects near-duplicate signals: a new signal for the
// same (symbol, timeframe) is suppressed while a previous one is younger
// than the window and the entry price has not moved past the threshold.
// Records are overwritten on acceptance and age out naturally.
type SuppressionCache struct {
	window     time.Duration
	priceDelta float64 // fractional move that releases suppression
	now        func() time.Time

	mu      sync.RWMutex
	records map[string]suppressionRecord
}

// NewSuppressionCache builds a cache with the given window and price
// threshold (fraction of the recorded entry, e.g. 0.03 for 3%).
func NewSuppressionCache(window time.Duration, priceDelta float64) *SuppressionCache {
	return &SuppressionCache{
		window:     window,
		priceDelta: priceDelta,
		now:        time.Now,
		records:    make(map[string]suppressionRecord),
	}
}

func suppressionKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}

// Suppressed reports whether a signal at entryPrice would be rejected as
// a duplicate, and returns the blocking record when it would.
func (c *SuppressionCache) Suppressed(symbol, timeframe string, entryPrice float64) (bool, suppressionRecord) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[suppressionKey(symbol, timeframe)]
	if !ok {
		return false, suppressionRecord{}
	}
	return c.blocks(rec, entryPrice), rec
}

// Commit atomically records an accepted signal. It re-checks suppression
// under the write lock so two racing evaluations cannot both win: the
// loser gets false and must treat the trade as suppressed.
func (c *SuppressionCache) Commit(symbol, timeframe string, entryPrice float64) bool {
	key := suppressionKey(symbol, timeframe)

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.records[key]; ok && c.blocks(rec, entryPrice) {
		return false
	}
	c.records[key] = suppressionRecord{AlertedAt: c.now(), EntryPrice: entryPrice}
	return true
}

// blocks applies the freshness and price-distance tests.
func (c *SuppressionCache) blocks(rec suppressionRecord, entryPrice float64) bool {
	if c.now().Sub(rec.AlertedAt) >= c.window {
		return false
	}
	if rec.EntryPrice == 0 {
		return true
	}
	move := math.Abs(entryPrice-rec.EntryPrice) / rec.EntryPrice
	return move < c.priceDelta
}
