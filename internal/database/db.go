package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/models"
)

// DB wraps the PostgreSQL connection used for durable engine state:
// regime history, realized performance accumulators and the trade-plan
// journal. All writes happen off the evaluation path.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New opens a connection, waits for the server to become reachable and
// creates the schema. The ping is retried with exponential backoff so a
// restart does not race the database coming up.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(db.Ping, strategy); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &DB{
		DB:     db,
		logger: log.With().Str("component", "database").Logger(),
	}, nil
}

// createTables creates the schema if it does not exist yet.
func createTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS regime_history (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			regime TEXT NOT NULL,
			trend_strength DOUBLE PRECISION NOT NULL,
			direction TEXT NOT NULL,
			volatility DOUBLE PRECISION NOT NULL,
			baseline_volatility DOUBLE PRECISION NOT NULL,
			ranging BOOLEAN NOT NULL,
			reversal BOOLEAN NOT NULL,
			low_confidence BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS regime_history_key
			ON regime_history (symbol, timeframe)`,
		`CREATE TABLE IF NOT EXISTS regime_performance (
			regime TEXT PRIMARY KEY,
			trades INT NOT NULL DEFAULT 0,
			wins INT NOT NULL DEFAULT 0,
			losses INT NOT NULL DEFAULT 0,
			gross_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
			gross_loss DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS trade_plans (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			regime TEXT NOT NULL,
			strategy TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profits DOUBLE PRECISION[] NOT NULL,
			leverage DOUBLE PRECISION NOT NULL,
			risk_reward DOUBLE PRECISION NOT NULL,
			risk_tier TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRegimeHistory replaces the stored history for one instrument with
// the classifier's current bounded window, inside a transaction so
// readers never see a partially rewritten key.
func (db *DB) SaveRegimeHistory(ctx context.Context, symbol, timeframe string, history []models.RegimeSnapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin regime history tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM regime_history WHERE symbol = $1 AND timeframe = $2`,
		symbol, timeframe); err != nil {
		return fmt.Errorf("prune regime history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO regime_history (
			symbol, timeframe, regime, trend_strength, direction,
			volatility, baseline_volatility, ranging, reversal,
			low_confidence, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("prepare regime history insert: %w", err)
	}
	defer stmt.Close()

	for _, snap := range history {
		if _, err := stmt.ExecContext(ctx,
			snap.Symbol, snap.Timeframe, string(snap.Regime), snap.TrendStrength, snap.Direction,
			snap.Volatility, snap.BaselineVolatility, snap.Ranging, snap.Reversal,
			snap.LowConfidence, snap.Timestamp,
		); err != nil {
			return fmt.Errorf("insert regime snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit regime history: %w", err)
	}

	db.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Int("snapshots", len(history)).
		Msg("regime history flushed")

	return nil
}

// LoadRegimeHistory returns the stored snapshots for one instrument,
// oldest first.
func (db *DB) LoadRegimeHistory(ctx context.Context, symbol, timeframe string) ([]models.RegimeSnapshot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT symbol, timeframe, regime, trend_strength, direction,
			volatility, baseline_volatility, ranging, reversal,
			low_confidence, created_at
		FROM regime_history
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY created_at
	`, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("query regime history: %w", err)
	}
	defer rows.Close()

	var history []models.RegimeSnapshot
	for rows.Next() {
		var snap models.RegimeSnapshot
		var regime string
		if err := rows.Scan(
			&snap.Symbol, &snap.Timeframe, &regime, &snap.TrendStrength, &snap.Direction,
			&snap.Volatility, &snap.BaselineVolatility, &snap.Ranging, &snap.Reversal,
			&snap.LowConfidence, &snap.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan regime snapshot: %w", err)
		}
		snap.Regime = models.Regime(regime)
		history = append(history, snap)
	}
	return history, rows.Err()
}

// RecordOutcome folds one realized trade into the per-regime
// accumulator. The increment happens inside the upsert so concurrent
// reporters cannot lose updates.
func (db *DB) RecordOutcome(ctx context.Context, outcome models.TradeOutcome) error {
	var delta models.RegimePerformance
	delta.Record(outcome)

	_, err := db.ExecContext(ctx, `
		INSERT INTO regime_performance (regime, trades, wins, losses, gross_profit, gross_loss)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (regime) DO UPDATE SET
			trades = regime_performance.trades + EXCLUDED.trades,
			wins = regime_performance.wins + EXCLUDED.wins,
			losses = regime_performance.losses + EXCLUDED.losses,
			gross_profit = regime_performance.gross_profit + EXCLUDED.gross_profit,
			gross_loss = regime_performance.gross_loss + EXCLUDED.gross_loss
	`, string(outcome.Regime), delta.Trades, delta.Wins, delta.Losses, delta.GrossProfit, delta.GrossLoss)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	db.logger.Debug().
		Str("regime", string(outcome.Regime)).
		Str("result", outcome.Result).
		Float64("profit", outcome.Profit).
		Msg("trade outcome recorded")

	return nil
}

// LoadPerformance returns every regime's accumulated record, keyed by
// regime, for the optimizer.
func (db *DB) LoadPerformance(ctx context.Context) (map[models.Regime]models.RegimePerformance, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT regime, trades, wins, losses, gross_profit, gross_loss
		FROM regime_performance
	`)
	if err != nil {
		return nil, fmt.Errorf("query performance: %w", err)
	}
	defer rows.Close()

	perf := make(map[models.Regime]models.RegimePerformance)
	for rows.Next() {
		var rec models.RegimePerformance
		var regime string
		if err := rows.Scan(&regime, &rec.Trades, &rec.Wins, &rec.Losses, &rec.GrossProfit, &rec.GrossLoss); err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		rec.Regime = models.Regime(regime)
		perf[rec.Regime] = rec
	}
	return perf, rows.Err()
}

// SavePlan journals one produced trade plan.
func (db *DB) SavePlan(ctx context.Context, plan models.TradePlan) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO trade_plans (
			symbol, timeframe, regime, strategy, side, entry_price,
			stop_loss, take_profits, leverage, risk_reward, risk_tier, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		plan.Symbol, plan.Timeframe, string(plan.Regime), plan.Strategy, plan.Side, plan.EntryPrice,
		plan.StopLoss, pq.Array(plan.TakeProfits), plan.Leverage, plan.RiskReward, plan.RiskTier.String(), plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("save trade plan: %w", err)
	}
	return nil
}
