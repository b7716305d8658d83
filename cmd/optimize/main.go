package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/config"
	"github.com/Alias1177/Strategist/internal/database"
	"github.com/Alias1177/Strategist/internal/optimizer"
	"github.com/Alias1177/Strategist/internal/risk"
	"github.com/Alias1177/Strategist/models"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

// Reads per-regime trade performance from Postgres, feeds it through the
// optimizer and persists the adjusted risk parameters. Set OUTCOMES_FILE
// to a JSON array of trade outcomes to record them before tuning.
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	if !cfg.Database.Enabled {
		log.Fatal().Msg("optimizer needs the trade journal: set DB_ENABLED=true")
	}

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx := context.Background()

	if path := os.Getenv("OUTCOMES_FILE"); path != "" {
		recorded, err := recordOutcomes(ctx, db, path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("outcome ingestion failed")
		}
		fmt.Printf("Зафиксировано результатов сделок: %d\n", recorded)
	}

	perf, err := db.LoadPerformance(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("performance load failed")
	}

	params, err := risk.NewParamStore(cfg.Storage.RiskParamsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("risk parameter store init failed")
	}

	current := params.All()
	tuned := optimizer.New(cfg.Optimizer.MinTrades).Optimize(perf, current)

	fmt.Printf("\n===== ОПТИМИЗАЦИЯ РИСК-ПАРАМЕТРОВ =====\n")
	for _, regime := range sortedRegimes(current) {
		before := current[regime]
		after := tuned[regime]
		stats := perf[regime]
		fmt.Printf("\n%s (сделок: %d, winrate: %.2f)\n", regime, stats.Trades, stats.WinRate())
		fmt.Printf("  R:R floor:       %.2f -> %.2f\n", before.MinRiskReward, after.MinRiskReward)
		fmt.Printf("  Drawdown ceil:   %.2f -> %.2f\n", before.MaxDrawdownPercent, after.MaxDrawdownPercent)
		fmt.Printf("  Position scale:  %.2f -> %.2f\n", before.PositionScale, after.PositionScale)
		fmt.Printf("  Stop scale:      %.2f -> %.2f\n", before.StopLossScale, after.StopLossScale)
	}

	if err := params.ReplaceAll(tuned); err != nil {
		log.Fatal().Err(err).Msg("risk parameter persist failed")
	}
	fmt.Printf("\nПараметры сохранены в %s\n", cfg.Storage.RiskParamsPath)
}

func recordOutcomes(ctx context.Context, db *database.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read outcomes file: %w", err)
	}

	var outcomes []models.TradeOutcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return 0, fmt.Errorf("parse outcomes file: %w", err)
	}

	for i, outcome := range outcomes {
		if err := db.RecordOutcome(ctx, outcome); err != nil {
			return i, fmt.Errorf("record outcome %d for %s: %w", i, outcome.Regime, err)
		}
	}
	return len(outcomes), nil
}

func sortedRegimes(params map[models.Regime]models.RiskParameters) []models.Regime {
	regimes := make([]models.Regime, 0, len(params))
	for regime := range params {
		regimes = append(regimes, regime)
	}
	sort.Slice(regimes, func(i, j int) bool { return regimes[i] < regimes[j] })
	return regimes
}
