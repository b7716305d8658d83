package planner

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/calculate"
	"github.com/Alias1177/Strategist/internal/playbook"
	"github.com/Alias1177/Strategist/internal/regime"
	"github.com/Alias1177/Strategist/internal/risk"
	"github.com/Alias1177/Strategist/models"
)

// Config holds the planner's lookback windows and the fixed-percent
// fallback used when a playbook rule cannot be computed from the series.
type Config struct {
	ATRPeriod       int
	RangeLookback   int     // bars for the high/low envelope
	SwingLookback   int     // bars scanned for swing-point rules
	FallbackPercent float64 // stop distance as percent of entry, e.g. 2.0
	MinBars         int     // below this the whole plan uses the fallback
}

func (c Config) withDefaults() Config {
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 14
	}
	if c.RangeLookback <= 0 {
		c.RangeLookback = 20
	}
	if c.SwingLookback <= 0 {
		c.SwingLookback = 10
	}
	if c.FallbackPercent <= 0 {
		c.FallbackPercent = 2.0
	}
	if c.MinBars <= 0 {
		c.MinBars = 15
	}
	return c
}

// Planner turns a candidate entry into a complete trade plan: regime,
// strategy, stop, ordered targets, leverage and risk:reward. It never
// fails; rules that cannot be derived from the series fall back to
// fixed-percent placement.
type Planner struct {
	cfg        Config
	classifier *regime.Classifier
	book       *playbook.Store
	params     *risk.ParamStore
	logger     zerolog.Logger
	now        func() time.Time
}

// New builds a Planner. classifier and params may be nil: without a
// classifier every plan is built against the ranging playbook unless the
// caller overrides the regime, and without params the stop distance is
// used as the playbook rule produced it.
func New(cfg Config, classifier *regime.Classifier, book *playbook.Store, params *risk.ParamStore) *Planner {
	return &Planner{
		cfg:        cfg.withDefaults(),
		classifier: classifier,
		book:       book,
		params:     params,
		logger:     log.With().Str("component", "planner").Logger(),
		now:        time.Now,
	}
}

// PlanTrade resolves the regime (override wins when valid), fetches the
// regime's playbook entry and derives stop, targets, leverage and
// risk:reward from it. The risk:reward ratio is measured against the
// first target. Fewer than MinBars bars, or a non-positive entry, plans
// entirely on the fixed-percent fallback.
func (p *Planner) PlanTrade(candles []models.Candle, entry float64, symbol, timeframe, side string, override models.Regime) models.TradePlan {
	reg := p.resolveRegime(candles, symbol, timeframe, override)
	pb := p.playbookEntry(reg)
	short := side == models.SideShort

	degenerate := len(candles) < p.cfg.MinBars || entry <= 0

	var stop float64
	if degenerate {
		stop = fixedPercentPrice(entry, p.cfg.FallbackPercent, !short)
	} else {
		stop = p.stopPrice(candles, entry, short, pb.StopLoss)
	}

	// The regime's tuned stop scale widens or tightens the distance,
	// keeping the stop on its side of the entry.
	if p.params != nil && !degenerate {
		if scale := p.params.Get(reg).StopLossScale; scale > 0 {
			stop = scaleStop(entry, stop, scale)
		}
	}

	riskDist := math.Abs(entry - stop)

	var targets []float64
	if degenerate || len(pb.TakeProfits) == 0 {
		targets = []float64{fixedPercentPrice(entry, 2*p.cfg.FallbackPercent, short)}
	} else {
		targets = make([]float64, 0, len(pb.TakeProfits))
		for _, rule := range pb.TakeProfits {
			targets = append(targets, p.targetPrice(candles, entry, riskDist, short, rule))
		}
	}

	rr := 0.0
	if riskDist > 0 && len(targets) > 0 {
		rr = math.Abs(targets[0]-entry) / riskDist
	}

	plan := models.TradePlan{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Regime:      reg,
		Strategy:    pb.Strategy,
		Side:        side,
		EntryPrice:  entry,
		StopLoss:    stop,
		TakeProfits: targets,
		Leverage:    pb.Leverage,
		RiskReward:  rr,
		RiskTier:    pb.RiskTier,
		CreatedAt:   p.now(),
	}

	p.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Str("regime", string(reg)).
		Str("strategy", pb.Strategy).
		Float64("entry", entry).
		Float64("stop", stop).
		Float64("risk_reward", rr).
		Msg("trade planned")

	return plan
}

func (p *Planner) resolveRegime(candles []models.Candle, symbol, timeframe string, override models.Regime) models.Regime {
	if override != "" && override.Valid() {
		return override
	}
	if p.classifier == nil {
		return models.RegimeRanging
	}
	return p.classifier.Classify(candles, symbol, timeframe).Regime
}

func (p *Planner) playbookEntry(reg models.Regime) models.PlaybookEntry {
	if p.book != nil {
		return p.book.Get(reg)
	}
	if entry, ok := playbook.DefaultEntries()[reg]; ok {
		return entry
	}
	return playbook.DefaultEntries()[models.RegimeRanging]
}

// stopPrice applies one stop rule. Rules that produce no level, or a
// level on the wrong side of the entry, fall back to the fixed percent.
func (p *Planner) stopPrice(candles []models.Candle, entry float64, short bool, rule models.StopRule) float64 {
	fallback := fixedPercentPrice(entry, p.cfg.FallbackPercent, !short)

	switch rule.Kind {
	case models.StopATRMultiple:
		dist := rule.Value * calculate.ATR(candles, p.cfg.ATRPeriod)
		if dist <= 0 {
			return fallback
		}
		if short {
			return entry + dist
		}
		return entry - dist

	case models.StopRangeBoundary:
		low, high := calculate.Envelope(candles, p.cfg.RangeLookback)
		if short {
			if high > entry {
				return high
			}
		} else if low > 0 && low < entry {
			return low
		}
		return fallback

	case models.StopSwingPoint:
		if level, ok := nearestSwing(candles, p.cfg.SwingLookback, entry, !short); ok {
			return level
		}
		return fallback

	case models.StopFixedPercent:
		pct := rule.Value
		if pct <= 0 {
			pct = p.cfg.FallbackPercent
		}
		return fixedPercentPrice(entry, pct, !short)

	default:
		return fallback
	}
}

// targetPrice applies one take-profit rule against the realized risk
// distance. Levels on the wrong side of the entry fall back to double
// the fixed percent so every plan keeps a positive reward.
func (p *Planner) targetPrice(candles []models.Candle, entry, riskDist float64, short bool, rule models.TargetRule) float64 {
	fallback := fixedPercentPrice(entry, 2*p.cfg.FallbackPercent, short)

	profitSide := func(level float64) bool {
		if short {
			return level < entry && level > 0
		}
		return level > entry
	}

	switch rule.Kind {
	case models.TargetRiskMultiple, models.TargetFibExtension:
		// Both extend the risk distance beyond the entry in the trade
		// direction; the fib variant just carries ratio values.
		if rule.Value <= 0 || riskDist <= 0 {
			return fallback
		}
		if short {
			if level := entry - rule.Value*riskDist; level > 0 {
				return level
			}
			return fallback
		}
		return entry + rule.Value*riskDist

	case models.TargetATRMultiple:
		dist := rule.Value * calculate.ATR(candles, p.cfg.ATRPeriod)
		if dist <= 0 {
			return fallback
		}
		if short {
			if level := entry - dist; level > 0 {
				return level
			}
			return fallback
		}
		return entry + dist

	case models.TargetRangeBoundary:
		low, high := calculate.Envelope(candles, p.cfg.RangeLookback)
		level := high
		if short {
			level = low
		}
		if profitSide(level) {
			return level
		}
		return fallback

	case models.TargetSwingPoint:
		if level, ok := nearestSwing(candles, p.cfg.SwingLookback, entry, short); ok {
			return level
		}
		return fallback

	case models.TargetFixedPercent:
		pct := rule.Value
		if pct <= 0 {
			pct = 2 * p.cfg.FallbackPercent
		}
		return fixedPercentPrice(entry, pct, short)

	default:
		return fallback
	}
}

// nearestSwing picks the confirmed swing level closest to the entry on
// the requested side: below the entry when below is true, above it
// otherwise.
func nearestSwing(candles []models.Candle, window int, entry float64, below bool) (float64, bool) {
	var levels []float64
	if below {
		levels = calculate.SwingLows(candles, window)
	} else {
		levels = calculate.SwingHighs(candles, window)
	}

	best := 0.0
	found := false
	for _, level := range levels {
		if below && (level <= 0 || level >= entry) {
			continue
		}
		if !below && level <= entry {
			continue
		}
		if !found || math.Abs(entry-level) < math.Abs(entry-best) {
			best = level
			found = true
		}
	}
	return best, found
}

// fixedPercentPrice offsets the entry by pct percent, downward when
// below is true.
func fixedPercentPrice(entry, pct float64, below bool) float64 {
	if below {
		return entry * (1 - pct/100)
	}
	return entry * (1 + pct/100)
}

// scaleStop stretches the stop distance by scale on its original side.
func scaleStop(entry, stop, scale float64) float64 {
	dist := math.Abs(entry-stop) * scale
	if stop < entry {
		return entry - dist
	}
	return entry + dist
}
