package regime

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/internal/calculate"
	"github.com/Alias1177/Strategist/models"
)

// Fixed classification constants. The configurable knobs live in Config.
const (
	rangingRSquaredMax = 0.25 // below this the regression explains nothing
	reversalSlopeRatio = 0.5  // short slope must exceed half the long slope

	// Noise gate for the reversal test: near-zero slopes on a flat series
	// trivially satisfy the sign/magnitude comparison, so the short slope
	// must also move at least this fraction of price per bar.
	reversalSlopeFloorFrac = 1e-4
)

// Config holds the classifier knobs with their documented defaults.
type Config struct {
	TrendLookback      int     // directional index / regression window
	VolatilityLookback int     // log-return stddev window
	TrendThreshold     float64 // directional index level that confirms a trend
	VolatilitySpike    float64 // current vol vs baseline multiplier
	RangingThreshold   float64 // max net price excursion inside a range
	MinBars            int     // below this the series is low confidence
}

func (c Config) withDefaults() Config {
	if c.TrendLookback <= 0 {
		c.TrendLookback = 20
	}
	if c.VolatilityLookback <= 0 {
		c.VolatilityLookback = 14
	}
	if c.TrendThreshold <= 0 {
		c.TrendThreshold = 30
	}
	if c.VolatilitySpike <= 0 {
		c.VolatilitySpike = 1.5
	}
	if c.RangingThreshold <= 0 {
		c.RangingThreshold = 0.03
	}
	if c.MinBars <= 0 {
		c.MinBars = 50
	}
	return c
}

// Classifier labels market conditions from candle series and keeps a
// bounded per-instrument history of its snapshots.
type Classifier struct {
	cfg     Config
	store   models.RegimeHistoryStore
	history *historyBook
	logger  zerolog.Logger
}

// New builds a Classifier. store may be nil, in which case history stays
// in memory only and no flushes are attempted.
func New(cfg Config, store models.RegimeHistoryStore) *Classifier {
	return &Classifier{
		cfg:     cfg.withDefaults(),
		store:   store,
		history: newHistoryBook(),
		logger:  log.With().Str("component", "regime").Logger(),
	}
}

// Classify labels the series and records the snapshot in the instrument's
// history. It never fails: series shorter than MinBars produce a ranging
// snapshot with the low-confidence flag set.
func (c *Classifier) Classify(candles []models.Candle, symbol, timeframe string) models.RegimeSnapshot {
	snap := models.RegimeSnapshot{
		Symbol:    symbol,
		Timeframe: timeframe,
		Regime:    models.RegimeRanging,
		Direction: models.DirectionNeutral,
		Timestamp: time.Now().UTC(),
	}

	if len(candles) < c.cfg.MinBars {
		snap.LowConfidence = true
		c.record(snap)
		c.logger.Debug().
			Str("symbol", symbol).
			Int("bars", len(candles)).
			Int("min_bars", c.cfg.MinBars).
			Msg("series too short, defaulting to ranging")
		return snap
	}

	// Trend strength and direction from the smoothed directional index
	adx, plusDI, minusDI := calculate.DirectionalIndex(candles, c.cfg.TrendLookback)
	snap.TrendStrength = adx
	if plusDI > minusDI {
		snap.Direction = models.DirectionBullish
	} else if minusDI > plusDI {
		snap.Direction = models.DirectionBearish
	}

	// Volatility of log returns against its recent historical baseline
	snap.Volatility = c.volatilityAt(candles, 0)
	snap.BaselineVolatility = c.baselineVolatility(candles)

	// Ranging: flat regression fit plus bounded net price movement
	trendWindow := lastN(candles, c.cfg.TrendLookback)
	shortSlope, rSquared := calculate.LinearRegression(trendWindow)
	excursion := calculate.PriceExcursion(candles, c.cfg.TrendLookback)
	snap.Ranging = rSquared < rangingRSquaredMax && excursion < c.cfg.RangingThreshold

	// Reversal: short-window slope turning against the longer trend
	longSlope, _ := calculate.LinearRegression(lastN(candles, c.cfg.TrendLookback*3/2))
	slopeFloor := reversalSlopeFloorFrac * math.Abs(candles[len(candles)-1].Close)
	snap.Reversal = shortSlope*longSlope < 0 &&
		math.Abs(shortSlope) > reversalSlopeRatio*math.Abs(longSlope) &&
		math.Abs(shortSlope) > slopeFloor

	snap.Regime = c.label(snap)
	c.record(snap)

	c.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Str("regime", string(snap.Regime)).
		Float64("adx", adx).
		Float64("volatility", snap.Volatility).
		Msg("classified")

	return snap
}

// label applies the precedence order: reversal beats trend beats ranging
// beats volatile; calm is the fallback.
func (c *Classifier) label(snap models.RegimeSnapshot) models.Regime {
	switch {
	case snap.Reversal:
		return models.RegimeReversal
	case snap.TrendStrength > c.cfg.TrendThreshold && snap.Direction == models.DirectionBullish:
		return models.RegimeBullishTrend
	case snap.TrendStrength > c.cfg.TrendThreshold && snap.Direction == models.DirectionBearish:
		return models.RegimeBearishTrend
	case snap.Ranging:
		return models.RegimeRanging
	case snap.BaselineVolatility > 0 && snap.Volatility > c.cfg.VolatilitySpike*snap.BaselineVolatility:
		return models.RegimeVolatile
	default:
		return models.RegimeCalm
	}
}

// volatilityAt computes the log-return stddev for the window ending
// `offset` bars before the series end. Returns 0 when the window does
// not fit.
func (c *Classifier) volatilityAt(candles []models.Candle, offset int) float64 {
	end := len(candles) - offset
	// One extra candle so the window yields VolatilityLookback returns
	start := end - c.cfg.VolatilityLookback - 1
	if start < 0 || end <= start {
		return 0
	}
	return calculate.StdDev(calculate.LogReturns(candles[start:end]))
}

// baselineVolatility averages the volatility measured 5..15 bars back.
// When no offset fits the series, the current volatility is returned so
// the spike ratio degrades to 1 instead of misfiring.
func (c *Classifier) baselineVolatility(candles []models.Candle) float64 {
	var samples []float64
	for offset := 5; offset <= 15; offset++ {
		if v := c.volatilityAt(candles, offset); v > 0 {
			samples = append(samples, v)
		}
	}
	if len(samples) == 0 {
		return c.volatilityAt(candles, 0)
	}
	return calculate.Average(samples)
}

func lastN(candles []models.Candle, n int) []models.Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
