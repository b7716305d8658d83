package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/calculate"
	"github.com/Alias1177/Strategist/internal/regime"
	"github.com/Alias1177/Strategist/models"
)

// Success-probability heuristic shape: bounded linear blend of trend
// correlation, raw range penalty and a reward bonus.
const (
	probFloor        = 0.1
	probCeil         = 0.9
	probBase         = 0.5
	probCorrWeight   = 0.3
	probRangePenalty = 5.0   // applied to mean range as a fraction of entry
	probRewardRate   = 0.025 // per unit of risk:reward
	probRewardCap    = 0.1

	corrWindow          = 30  // bars for the trend-correlation proxy
	drawdownATRMultiple = 2.0 // adverse-excursion estimate in ATR units

	srWindow    = 50   // bars scanned for swing points
	srProximity = 0.01 // entry within 1% of a level raises the flag
)

// Config holds the manager's ambient thresholds, used when no regime
// parameters apply.
type Config struct {
	MinRiskReward         float64
	MaxDrawdownPercent    float64
	MinVolume24h          float64
	MinSuccessProbability float64
	SuppressionWindow     time.Duration
	SuppressionPriceMove  float64 // fraction, e.g. 0.03
	ATRPeriod             int
	ApplyStopScale        bool // rescale the stop by the regime's factor
}

func (c Config) withDefaults() Config {
	if c.MinRiskReward <= 0 {
		c.MinRiskReward = 1.5
	}
	if c.MaxDrawdownPercent <= 0 {
		c.MaxDrawdownPercent = 2.0
	}
	if c.MinVolume24h <= 0 {
		c.MinVolume24h = 50000
	}
	if c.MinSuccessProbability <= 0 {
		c.MinSuccessProbability = 0.6
	}
	if c.SuppressionWindow <= 0 {
		c.SuppressionWindow = 4 * time.Hour
	}
	if c.SuppressionPriceMove <= 0 {
		c.SuppressionPriceMove = 0.03
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 14
	}
	return c
}

// Manager validates candidate trades and sizes positions. A classifier
// and parameter store may be attached so regime-specific thresholds
// override the ambient ones.
type Manager struct {
	cfg        Config
	classifier *regime.Classifier
	params     *ParamStore
	suppressor *SuppressionCache
	logger     zerolog.Logger
}

// NewManager builds a Manager. classifier and params may be nil; the
// manager then evaluates against its ambient configuration only.
func NewManager(cfg Config, classifier *regime.Classifier, params *ParamStore) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:        cfg,
		classifier: classifier,
		params:     params,
		suppressor: NewSuppressionCache(cfg.SuppressionWindow, cfg.SuppressionPriceMove),
		logger:     log.With().Str("component", "risk").Logger(),
	}
}

// IsSafeTrade runs the gate sequence over a candidate trade and returns
// the verdict plus an ordered explanation: every check appends what it
// saw, the first failure stops the sequence. On acceptance the
// suppression record is updated atomically.
func (m *Manager) IsSafeTrade(candles []models.Candle, entry, stop, takeProfit, volume24h float64, symbol, timeframe string) (bool, []string) {
	var reasons []string

	// Regime thresholds override the ambient ones when available
	floor := m.cfg.MinRiskReward
	ceiling := m.cfg.MaxDrawdownPercent
	if m.classifier != nil {
		snap := m.classifier.Classify(candles, symbol, timeframe)
		if m.params != nil {
			p := m.params.Get(snap.Regime)
			floor = p.MinRiskReward
			ceiling = p.MaxDrawdownPercent
			if m.cfg.ApplyStopScale && p.StopLossScale > 0 {
				stop = rescaleStop(entry, stop, p.StopLossScale)
			}
			reasons = append(reasons, fmt.Sprintf(
				"regime %s: risk:reward floor %.2f, drawdown ceiling %.2f%%",
				snap.Regime, floor, ceiling))
		}
	}

	// Duplicate suppression runs before all other checks and rejects
	// with a single reason, whatever was accumulated so far.
	if blocked, rec := m.suppressor.Suppressed(symbol, timeframe, entry); blocked {
		return false, []string{m.suppressionReason(rec, entry)}
	}

	// Risk:reward
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if entry <= 0 || risk == 0 {
		reasons = append(reasons, "degenerate input: stop equals entry or entry is not positive")
		return false, reasons
	}
	rr := reward / risk
	if rr < floor {
		reasons = append(reasons, fmt.Sprintf("risk:reward %.2f below floor %.2f", rr, floor))
		return false, reasons
	}
	reasons = append(reasons, fmt.Sprintf("risk:reward %.2f meets floor %.2f", rr, floor))

	// Liquidity
	if volume24h < m.cfg.MinVolume24h {
		reasons = append(reasons, fmt.Sprintf("24h volume %.0f below minimum %.0f", volume24h, m.cfg.MinVolume24h))
		return false, reasons
	}
	reasons = append(reasons, fmt.Sprintf("24h volume %.0f above minimum %.0f", volume24h, m.cfg.MinVolume24h))

	// Historical success probability
	prob := m.successProbability(candles, entry, stop, rr)
	if prob < m.cfg.MinSuccessProbability {
		reasons = append(reasons, fmt.Sprintf("success probability %.2f below minimum %.2f", prob, m.cfg.MinSuccessProbability))
		return false, reasons
	}
	reasons = append(reasons, fmt.Sprintf("success probability %.2f above minimum %.2f", prob, m.cfg.MinSuccessProbability))

	// Drawdown estimate from recent true range
	atr := calculate.ATR(candles, m.cfg.ATRPeriod)
	ddPercent := drawdownATRMultiple * atr / entry * 100
	if ddPercent > ceiling {
		reasons = append(reasons, fmt.Sprintf("estimated drawdown %.2f%% exceeds ceiling %.2f%%", ddPercent, ceiling))
		return false, reasons
	}
	reasons = append(reasons, fmt.Sprintf("estimated drawdown %.2f%% within ceiling %.2f%%", ddPercent, ceiling))

	// Support/resistance proximity: informational, never rejects
	if level, near := m.nearSwingLevel(candles, entry); near {
		reasons = append(reasons, fmt.Sprintf("note: entry %.4f within %.1f%% of swing level %.4f", entry, srProximity*100, level))
	}

	// Acceptance must win the suppression slot; a racing evaluation may
	// have taken it since the early check.
	if !m.suppressor.Commit(symbol, timeframe, entry) {
		blocked, rec := m.suppressor.Suppressed(symbol, timeframe, entry)
		if blocked {
			return false, []string{m.suppressionReason(rec, entry)}
		}
		return false, []string{"duplicate signal: concurrent evaluation already accepted this instrument"}
	}

	reasons = append(reasons, "all risk checks passed")

	m.logger.Info().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Float64("entry", entry).
		Float64("risk_reward", rr).
		Float64("probability", prob).
		Msg("trade accepted")

	return true, reasons
}

// successProbability blends trend correlation, raw range and the reward
// ratio into a bounded heuristic score.
func (m *Manager) successProbability(candles []models.Candle, entry, stop, rr float64) float64 {
	corr := calculate.TimeCorrelation(candles, corrWindow)
	if stop > entry {
		// Short trade: falling prices are the favorable direction
		corr = -corr
	}

	rangePenalty := 0.0
	if entry > 0 {
		rangePenalty = probRangePenalty * calculate.MeanRange(candles, corrWindow) / entry
	}

	bonus := math.Min(probRewardCap, probRewardRate*rr)

	prob := probBase + probCorrWeight*corr - rangePenalty + bonus
	return math.Max(probFloor, math.Min(probCeil, prob))
}

// nearSwingLevel reports the closest 2-bar-confirmed swing level within
// the proximity threshold of the entry, if any.
func (m *Manager) nearSwingLevel(candles []models.Candle, entry float64) (float64, bool) {
	if entry <= 0 {
		return 0, false
	}

	levels := calculate.SwingHighs(candles, srWindow)
	levels = append(levels, calculate.SwingLows(candles, srWindow)...)

	for _, level := range levels {
		if math.Abs(entry-level)/entry < srProximity {
			return level, true
		}
	}
	return 0, false
}

// rescaleStop moves the stop to scale times its original distance from
// entry, on the same side.
func rescaleStop(entry, stop, scale float64) float64 {
	dist := math.Abs(entry-stop) * scale
	if stop < entry {
		return entry - dist
	}
	return entry + dist
}

func (m *Manager) suppressionReason(rec suppressionRecord, entry float64) string {
	age := m.suppressor.now().Sub(rec.AlertedAt).Round(time.Second)
	return fmt.Sprintf(
		"duplicate signal: accepted %s ago at %.4f, entry %.4f has not moved past the suppression threshold",
		age, rec.EntryPrice, entry)
}
