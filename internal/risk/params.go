package risk

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

// ParamStore holds the per-regime risk parameters the optimizer tunes.
// Like the playbook it is one JSON document replaced atomically, so
// concurrent readers never see a half-written parameter set.
type ParamStore struct {
	path   string
	logger zerolog.Logger

	mu     sync.RWMutex
	params map[models.Regime]models.RiskParameters
}

// DefaultParams returns the seed parameter set: trend and calm regimes
// get the ambient defaults, choppier regimes start tighter.
func DefaultParams() map[models.Regime]models.RiskParameters {
	return map[models.Regime]models.RiskParameters{
		models.RegimeBullishTrend: {MinRiskReward: 1.5, MaxDrawdownPercent: 2.0, PositionScale: 1.0, StopLossScale: 1.0},
		models.RegimeBearishTrend: {MinRiskReward: 1.5, MaxDrawdownPercent: 2.0, PositionScale: 1.0, StopLossScale: 1.0},
		models.RegimeRanging:      {MinRiskReward: 2.0, MaxDrawdownPercent: 1.5, PositionScale: 0.8, StopLossScale: 0.9},
		models.RegimeVolatile:     {MinRiskReward: 2.0, MaxDrawdownPercent: 1.5, PositionScale: 0.7, StopLossScale: 1.2},
		models.RegimeCalm:         {MinRiskReward: 1.5, MaxDrawdownPercent: 2.0, PositionScale: 1.0, StopLossScale: 1.0},
		models.RegimeReversal:     {MinRiskReward: 2.5, MaxDrawdownPercent: 1.5, PositionScale: 0.8, StopLossScale: 1.1},
	}
}

// NewParamStore opens (or seeds) the parameter document at path.
func NewParamStore(path string) (*ParamStore, error) {
	s := &ParamStore{
		path:   path,
		logger: log.With().Str("component", "risk_params").Logger(),
		params: make(map[models.Regime]models.RiskParameters),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.params); err != nil {
			return nil, fmt.Errorf("parse risk params %s: %w", path, err)
		}
	case os.IsNotExist(err):
		s.params = DefaultParams()
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("seed risk params %s: %w", path, err)
		}
		s.logger.Info().Str("path", path).Msg("seeded default risk parameters")
	default:
		return nil, fmt.Errorf("read risk params %s: %w", path, err)
	}

	return s, nil
}

// Get resolves the parameters for a regime, falling back to the ranging
// set and then to the package defaults. Never fails.
func (s *ParamStore) Get(regime models.Regime) models.RiskParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.params[regime]; ok {
		return p
	}
	if p, ok := s.params[models.RegimeRanging]; ok {
		return p
	}
	return DefaultParams()[models.RegimeRanging]
}

// All returns a copy of the full parameter set.
func (s *ParamStore) All() map[models.Regime]models.RiskParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.Regime]models.RiskParameters, len(s.params))
	for r, p := range s.params {
		out[r] = p
	}
	return out
}

// ReplaceAll swaps in a complete new parameter set and rewrites the
// document. Replace-not-patch keeps optimizer output all-or-nothing.
func (s *ParamStore) ReplaceAll(params map[models.Regime]models.RiskParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[models.Regime]models.RiskParameters, len(params))
	for r, p := range params {
		next[r] = p
	}
	s.params = next
	return s.persistLocked()
}

func (s *ParamStore) persistLocked() error {
	data, err := json.MarshalIndent(s.params, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal risk params: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("persist risk params: %w", err)
	}
	return nil
}
