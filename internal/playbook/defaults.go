package playbook

import (
	"github.com/Alias1177/Strategist/models"
)

// DefaultEntries returns the seed playbook: one conservative but usable
// recipe per regime. Operators tune these through Upsert; the optimizer
// tunes the companion risk parameters separately.
func DefaultEntries() map[models.Regime]models.PlaybookEntry {
	return map[models.Regime]models.PlaybookEntry{
		models.RegimeBullishTrend: {
			Regime:     models.RegimeBullishTrend,
			Strategy:   "trend-following",
			Leverage:   3,
			EntryStyle: "pullback",
			StopLoss:   models.StopRule{Kind: models.StopATRMultiple, Value: 2.0},
			TakeProfits: []models.TargetRule{
				{Kind: models.TargetRiskMultiple, Value: 2.0},
				{Kind: models.TargetFibExtension, Value: 1.618},
			},
			RiskTier: models.TierModerateHigh,
			Filters:  models.EntryFilters{MinVolume: 50000},
		},
		models.RegimeBearishTrend: {
			Regime:     models.RegimeBearishTrend,
			Strategy:   "trend-following",
			Leverage:   3,
			EntryStyle: "pullback",
			StopLoss:   models.StopRule{Kind: models.StopATRMultiple, Value: 2.0},
			TakeProfits: []models.TargetRule{
				{Kind: models.TargetRiskMultiple, Value: 2.0},
				{Kind: models.TargetFibExtension, Value: 1.618},
			},
			RiskTier: models.TierModerateHigh,
			Filters:  models.EntryFilters{MinVolume: 50000},
		},
		models.RegimeRanging: {
			Regime:     models.RegimeRanging,
			Strategy:   "range-fade",
			Leverage:   2,
			EntryStyle: "fade",
			StopLoss:   models.StopRule{Kind: models.StopRangeBoundary},
			TakeProfits: []models.TargetRule{
				{Kind: models.TargetRangeBoundary},
				{Kind: models.TargetRiskMultiple, Value: 1.5},
			},
			RiskTier: models.TierLow,
			Filters:  models.EntryFilters{MinVolume: 50000},
		},
		models.RegimeVolatile: {
			Regime:     models.RegimeVolatile,
			Strategy:   "volatility-breakout",
			Leverage:   1.5,
			EntryStyle: "breakout",
			StopLoss:   models.StopRule{Kind: models.StopATRMultiple, Value: 2.5},
			TakeProfits: []models.TargetRule{
				{Kind: models.TargetRiskMultiple, Value: 2.5},
			},
			RiskTier: models.TierHigh,
			Filters:  models.EntryFilters{MinVolume: 100000, MinVolatility: 0.0005},
		},
		models.RegimeCalm: {
			Regime:     models.RegimeCalm,
			Strategy:   "drift-follow",
			Leverage:   2,
			EntryStyle: "pullback",
			StopLoss:   models.StopRule{Kind: models.StopFixedPercent, Value: 2.0},
			TakeProfits: []models.TargetRule{
				{Kind: models.TargetRiskMultiple, Value: 2.0},
			},
			RiskTier: models.TierModerate,
			Filters:  models.EntryFilters{MinVolume: 50000, MaxVolatility: 0.02},
		},
		models.RegimeReversal: {
			Regime:     models.RegimeReversal,
			Strategy:   "counter-trend",
			Leverage:   2,
			EntryStyle: "confirmation",
			StopLoss:   models.StopRule{Kind: models.StopSwingPoint},
			TakeProfits: []models.TargetRule{
				{Kind: models.TargetRiskMultiple, Value: 2.0},
				{Kind: models.TargetFibExtension, Value: 1.272},
			},
			RiskTier: models.TierHigh,
			Filters:  models.EntryFilters{MinVolume: 100000},
		},
	}
}
