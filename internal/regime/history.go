package regime

import (
	"context"
	"sync"

	"github.com/Alias1177/Strategist/models"
)

const (
	historyCap = 100 // most recent snapshots kept per instrument
	flushEvery = 10  // appends between durable flushes
)

// historyBook owns the per-(symbol,timeframe) snapshot histories.
// Appends for one key are serialized on the key's own lock so concurrent
// classifications of the same instrument never lose updates.
type historyBook struct {
	mu   sync.Mutex
	keys map[string]*keyHistory
}

type keyHistory struct {
	mu        sync.Mutex
	snapshots []models.RegimeSnapshot
	appends   int
}

func newHistoryBook() *historyBook {
	return &historyBook{keys: make(map[string]*keyHistory)}
}

func historyKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}

func (b *historyBook) forKey(symbol, timeframe string) *keyHistory {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := historyKey(symbol, timeframe)
	kh, ok := b.keys[key]
	if !ok {
		kh = &keyHistory{}
		b.keys[key] = kh
	}
	return kh
}

// record appends the snapshot to its instrument history, prunes to the
// cap and kicks off an asynchronous flush on every 10th append. The
// flush gets its own copy so the writer never races the history slice.
func (c *Classifier) record(snap models.RegimeSnapshot) {
	kh := c.history.forKey(snap.Symbol, snap.Timeframe)

	kh.mu.Lock()
	kh.snapshots = append(kh.snapshots, snap)
	if len(kh.snapshots) > historyCap {
		kh.snapshots = kh.snapshots[len(kh.snapshots)-historyCap:]
	}
	kh.appends++
	shouldFlush := c.store != nil && kh.appends%flushEvery == 0

	var copied []models.RegimeSnapshot
	if shouldFlush {
		copied = make([]models.RegimeSnapshot, len(kh.snapshots))
		copy(copied, kh.snapshots)
	}
	kh.mu.Unlock()

	if shouldFlush {
		go c.flush(snap.Symbol, snap.Timeframe, copied)
	}
}

// flush writes one instrument's history to durable storage. Failures are
// logged only; the next scheduled flush retries with fresher data.
func (c *Classifier) flush(symbol, timeframe string, history []models.RegimeSnapshot) {
	if err := c.store.SaveRegimeHistory(context.Background(), symbol, timeframe, history); err != nil {
		c.logger.Error().
			Err(err).
			Str("symbol", symbol).
			Str("timeframe", timeframe).
			Int("snapshots", len(history)).
			Msg("history flush failed, will retry next cycle")
	}
}

// Latest returns the most recent snapshot recorded for the instrument.
func (c *Classifier) Latest(symbol, timeframe string) (models.RegimeSnapshot, bool) {
	kh := c.history.forKey(symbol, timeframe)

	kh.mu.Lock()
	defer kh.mu.Unlock()

	if len(kh.snapshots) == 0 {
		return models.RegimeSnapshot{}, false
	}
	return kh.snapshots[len(kh.snapshots)-1], true
}

// History returns a copy of the instrument's recorded snapshots, oldest
// first. Intended for diagnostics; reads may trail concurrent appends.
func (c *Classifier) History(symbol, timeframe string) []models.RegimeSnapshot {
	kh := c.history.forKey(symbol, timeframe)

	kh.mu.Lock()
	defer kh.mu.Unlock()

	out := make([]models.RegimeSnapshot, len(kh.snapshots))
	copy(out, kh.snapshots)
	return out
}
