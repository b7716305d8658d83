package playbook

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/utils"
	"github.com/Alias1177/Strategist/models"
)

// Store maps regimes to their trading recipes, backed by a single JSON
// document. Every mutation rewrites the whole document through a temp
// file plus atomic rename, so a crash can never leave a half-written
// playbook behind.
type Store struct {
	path   string
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[models.Regime]models.PlaybookEntry
}

// NewStore opens (or creates) the playbook document at path. A missing
// file is seeded with the default entry for every regime so lookups
// never need the fallback path under normal operation.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    path,
		logger:  log.With().Str("component", "playbook").Logger(),
		entries: make(map[models.Regime]models.PlaybookEntry),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("parse playbook %s: %w", path, err)
		}
	case os.IsNotExist(err):
		s.entries = DefaultEntries()
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("seed playbook %s: %w", path, err)
		}
		s.logger.Info().Str("path", path).Msg("seeded default playbook")
	default:
		return nil, fmt.Errorf("read playbook %s: %w", path, err)
	}

	return s, nil
}

// Get resolves the entry for a regime. It never fails: an absent regime
// falls back to the ranging entry, then to the first available one.
func (s *Store) Get(regime models.Regime) models.PlaybookEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[regime]; ok {
		return entry
	}
	if entry, ok := s.entries[models.RegimeRanging]; ok {
		s.logger.Warn().
			Str("regime", string(regime)).
			Msg("no playbook entry, using ranging fallback")
		return entry
	}
	for _, r := range models.AllRegimes() {
		if entry, ok := s.entries[r]; ok {
			return entry
		}
	}
	// Empty store: synthesize the ranging default so callers always get
	// a usable recipe.
	return DefaultEntries()[models.RegimeRanging]
}

// Upsert stores the entry under the regime key and rewrites the document.
// The in-memory state is updated even when the rewrite fails, so the
// next successful mutation persists it.
func (s *Store) Upsert(regime models.Regime, entry models.PlaybookEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Regime = regime
	s.entries[regime] = entry
	return s.persistLocked()
}

// Remove deletes the regime's entry, reporting whether it existed.
func (s *Store) Remove(regime models.Regime) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[regime]; !ok {
		return false, nil
	}
	delete(s.entries, regime)
	return true, s.persistLocked()
}

// List returns a copy of every entry keyed by regime.
func (s *Store) List() map[models.Regime]models.PlaybookEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.Regime]models.PlaybookEntry, len(s.entries))
	for r, e := range s.entries {
		out[r] = e
	}
	return out
}

// persistLocked rewrites the backing document. Callers hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal playbook: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("persist playbook: %w", err)
	}
	return nil
}
