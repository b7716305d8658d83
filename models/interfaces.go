package models

import "context"

// CandleClient supplies candle series from a market-data provider.
// Implementations must return candles sorted oldest-first with strictly
// increasing timestamps.
type CandleClient interface {
	GetCandles(ctx context.Context, symbol, timeframe string, count int) ([]Candle, error)
	GetHistoricalCandles(ctx context.Context, symbol, timeframe string, days int) ([]Candle, error)
}

// RegimeHistoryStore persists classification snapshots. Implementations
// must tolerate being called from background goroutines; failures are
// reported through the error, never by panicking.
type RegimeHistoryStore interface {
	SaveRegimeHistory(ctx context.Context, symbol, timeframe string, history []RegimeSnapshot) error
}

// PlanJournal records accepted trade plans for later outcome analysis.
type PlanJournal interface {
	SavePlan(ctx context.Context, plan TradePlan) error
}
