package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Strategist/config"
	"github.com/Alias1177/Strategist/internal/api/marketdata"
	"github.com/Alias1177/Strategist/internal/database"
	"github.com/Alias1177/Strategist/internal/planner"
	"github.com/Alias1177/Strategist/internal/playbook"
	"github.com/Alias1177/Strategist/internal/regime"
	"github.com/Alias1177/Strategist/internal/risk"
	"github.com/Alias1177/Strategist/models"
)

func init() {
	// если .env лежит в корне проекта, без аргумента он сам найдёт
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

// engine bundles the wired components so the evaluation loop does not
// drag seven parameters through every call.
type engine struct {
	cfg        *config.Config
	client     *marketdata.Client
	classifier *regime.Classifier
	book       *playbook.Store
	manager    *risk.Manager
	planner    *planner.Planner
	journal    models.PlanJournal
}

func main() {
	// 1) Конфиг и логгер
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	fmt.Printf("Используемая конфигурация:\n")
	fmt.Printf("Symbols: %v\n", cfg.Symbols)
	fmt.Printf("Timeframe: %s\n", cfg.Timeframe)
	fmt.Printf("CandleCount: %d\n", cfg.CandleCount)
	fmt.Printf("EvalInterval: %s\n", cfg.EvalInterval)
	fmt.Printf("Database: %t\n", cfg.Database.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2) Опциональный Postgres: история режимов и журнал планов
	var history models.RegimeHistoryStore
	var journal models.PlanJournal
	if cfg.Database.Enabled {
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
		history = db
		journal = db
	}

	// 3) Сборка движка: данные -> классификатор -> плейбук -> риск -> планировщик
	client := marketdata.NewClient(marketdata.ClientOptions{
		APIKey:         cfg.MarketData.APIKey,
		RequestTimeout: cfg.MarketData.RequestTimeout,
		RequestsPerSec: cfg.MarketData.RequestsPerSec,
	})

	classifier := regime.New(regime.Config{
		TrendLookback:      cfg.Classifier.TrendLookback,
		VolatilityLookback: cfg.Classifier.VolatilityLookback,
		TrendThreshold:     cfg.Classifier.TrendThreshold,
		VolatilitySpike:    cfg.Classifier.VolatilitySpike,
		RangingThreshold:   cfg.Classifier.RangingThreshold,
	}, history)

	book, err := playbook.NewStore(cfg.Storage.PlaybookPath)
	if err != nil {
		log.Fatal().Err(err).Msg("playbook store init failed")
	}

	params, err := risk.NewParamStore(cfg.Storage.RiskParamsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("risk parameter store init failed")
	}

	manager := risk.NewManager(risk.Config{
		MinRiskReward:         cfg.Risk.MinRiskReward,
		MaxDrawdownPercent:    cfg.Risk.MaxDrawdownPercent,
		MinVolume24h:          cfg.Risk.MinVolume24h,
		MinSuccessProbability: cfg.Risk.MinSuccessProbability,
		SuppressionWindow:     cfg.Risk.SuppressionWindow,
		SuppressionPriceMove:  cfg.Risk.SuppressionPriceMove,
		ATRPeriod:             cfg.Risk.ATRPeriod,
		ApplyStopScale:        cfg.Risk.ApplyStopScale,
	}, classifier, params)

	eng := &engine{
		cfg:        cfg,
		client:     client,
		classifier: classifier,
		book:       book,
		manager:    manager,
		planner: planner.New(planner.Config{
			ATRPeriod:       cfg.Risk.ATRPeriod,
			RangeLookback:   cfg.Planner.RangeLookback,
			SwingLookback:   cfg.Planner.SwingLookback,
			FallbackPercent: cfg.Planner.FallbackPercent,
		}, classifier, book, params),
		journal: journal,
	}

	// 4) Цикл оценки: сразу и дальше по тикеру
	eng.evaluateAll(ctx)

	ticker := time.NewTicker(cfg.EvalInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			eng.evaluateAll(ctx)
		}
	}
}

func (e *engine) evaluateAll(ctx context.Context) {
	for _, symbol := range e.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		e.evaluate(ctx, symbol)
	}
}

func (e *engine) evaluate(ctx context.Context, symbol string) {
	candles, err := e.client.GetCandles(ctx, symbol, e.cfg.Timeframe, e.cfg.CandleCount)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("fetch candles failed")
		return
	}

	snap := e.classifier.Classify(candles, symbol, e.cfg.Timeframe)
	volume24h := volumeLast24h(candles, e.cfg.Timeframe)

	fmt.Printf("\n===== %s %s =====\n", symbol, e.cfg.Timeframe)
	fmt.Printf("Режим: %s (тренд=%.1f, направление=%s, волатильность=%.5f)\n",
		snap.Regime, snap.TrendStrength, snap.Direction, snap.Volatility)

	entry := candles[len(candles)-1].Close
	side := models.SideLong
	if snap.Direction == models.DirectionBearish {
		side = models.SideShort
	}

	if pb := e.book.Get(snap.Regime); !pb.Filters.Allows(volume24h, snap.Volatility) {
		fmt.Printf("Фильтры стратегии %q не пройдены (объём 24ч=%.0f, волатильность=%.5f)\n",
			pb.Strategy, volume24h, snap.Volatility)
		return
	}

	plan := e.planner.PlanTrade(candles, entry, symbol, e.cfg.Timeframe, side, "")

	target := plan.EntryPrice
	if len(plan.TakeProfits) > 0 {
		target = plan.TakeProfits[0]
	}
	safe, reasons := e.manager.IsSafeTrade(candles, plan.EntryPrice, plan.StopLoss, target, volume24h, symbol, e.cfg.Timeframe)

	fmt.Printf("Стратегия: %s (%s, плечо %.1fx, риск-уровень %s)\n",
		plan.Strategy, plan.Side, plan.Leverage, plan.RiskTier)
	fmt.Printf("Вход: %.5f  Стоп: %.5f  Цели: %v  R:R=%.2f\n",
		plan.EntryPrice, plan.StopLoss, plan.TakeProfits, plan.RiskReward)
	fmt.Println("Проверки риска:")
	for _, reason := range reasons {
		fmt.Printf("  - %s\n", reason)
	}

	if !safe {
		fmt.Println("Решение: ОТКЛОНЕНО")
		return
	}

	// Sizing request asks for profit equal to the notional, so the 1%
	// risk budget cap always binds and the regime scale shows through.
	size := e.manager.PositionSize(plan.EntryPrice, plan.StopLoss, plan.EntryPrice, 1.0, symbol, e.cfg.Timeframe)
	fmt.Printf("Решение: ПРИНЯТО (размер при риске 1%%: %.4f)\n", size)

	if e.journal != nil {
		if err := e.journal.SavePlan(ctx, plan); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("plan journal write failed")
		}
	}
}

// volumeLast24h sums candle volume over the trailing day. Series shorter
// than a day contribute everything they have.
func volumeLast24h(candles []models.Candle, timeframe string) float64 {
	per := models.TimeframeDuration(timeframe)
	bars := int(24 * time.Hour / per)
	if bars <= 0 {
		bars = 1
	}
	if bars > len(candles) {
		bars = len(candles)
	}

	var total float64
	for _, c := range candles[len(candles)-bars:] {
		total += c.Volume
	}
	return total
}
