package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration. Values resolve in three layers:
// built-in defaults, then the optional YAML file, then environment
// variables. Every field has a usable default so an empty environment
// still yields a runnable configuration.
type Config struct {
	Symbols      []string      `yaml:"symbols"`
	Timeframe    string        `yaml:"timeframe"`
	CandleCount  int           `yaml:"candle_count"`
	EvalInterval time.Duration `yaml:"eval_interval"`
	LogLevel     string        `yaml:"log_level"`

	MarketData MarketDataConfig `yaml:"market_data"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Risk       RiskConfig       `yaml:"risk"`
	Planner    PlannerConfig    `yaml:"planner"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
}

// MarketDataConfig configures the candle provider client.
type MarketDataConfig struct {
	APIKey         string        `yaml:"-"` // secrets come from the environment only
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestsPerSec int           `yaml:"requests_per_sec"`
}

// ClassifierConfig carries the regime-detection windows and thresholds.
type ClassifierConfig struct {
	TrendLookback      int     `yaml:"trend_lookback"`
	VolatilityLookback int     `yaml:"volatility_lookback"`
	TrendThreshold     float64 `yaml:"trend_threshold"`
	VolatilitySpike    float64 `yaml:"volatility_spike"`
	RangingThreshold   float64 `yaml:"ranging_threshold"`
}

// RiskConfig carries the ambient trade-validation thresholds.
type RiskConfig struct {
	MinRiskReward         float64       `yaml:"min_risk_reward"`
	MaxDrawdownPercent    float64       `yaml:"max_drawdown_percent"`
	MinVolume24h          float64       `yaml:"min_volume_24h"`
	MinSuccessProbability float64       `yaml:"min_success_probability"`
	SuppressionWindow     time.Duration `yaml:"suppression_window"`
	SuppressionPriceMove  float64       `yaml:"suppression_price_move"`
	ATRPeriod             int           `yaml:"atr_period"`
	ApplyStopScale        bool          `yaml:"apply_stop_scale"`
}

// PlannerConfig carries the stop/target derivation windows.
type PlannerConfig struct {
	RangeLookback   int     `yaml:"range_lookback"`
	SwingLookback   int     `yaml:"swing_lookback"`
	FallbackPercent float64 `yaml:"fallback_percent"`
}

// OptimizerConfig carries the feedback-loop settings.
type OptimizerConfig struct {
	MinTrades int `yaml:"min_trades"`
}

// StorageConfig locates the JSON documents for the playbook and the
// tunable risk parameters.
type StorageConfig struct {
	PlaybookPath   string `yaml:"playbook_path"`
	RiskParamsPath string `yaml:"risk_params_path"`
}

// DatabaseConfig configures the optional PostgreSQL connection.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // secrets come from the environment only
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func defaults() *Config {
	return &Config{
		Symbols:      []string{"EUR/USD"},
		Timeframe:    "5min",
		CandleCount:  100,
		EvalInterval: 5 * time.Minute,
		LogLevel:     "info",
		MarketData: MarketDataConfig{
			RequestTimeout: 30 * time.Second,
			RequestsPerSec: 5,
		},
		Classifier: ClassifierConfig{
			TrendLookback:      20,
			VolatilityLookback: 14,
			TrendThreshold:     30,
			VolatilitySpike:    1.5,
			RangingThreshold:   0.03,
		},
		Risk: RiskConfig{
			MinRiskReward:         1.5,
			MaxDrawdownPercent:    2.0,
			MinVolume24h:          50000,
			MinSuccessProbability: 0.6,
			SuppressionWindow:     4 * time.Hour,
			SuppressionPriceMove:  0.03,
			ATRPeriod:             14,
		},
		Planner: PlannerConfig{
			RangeLookback:   20,
			SwingLookback:   10,
			FallbackPercent: 2.0,
		},
		Optimizer: OptimizerConfig{
			MinTrades: 10,
		},
		Storage: StorageConfig{
			PlaybookPath:   "data/playbook.json",
			RiskParamsPath: "data/risk_params.json",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			DBName:  "strategist",
			SSLMode: "disable",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment variables. A .env file
// in the working directory is folded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, s)
			}
		}
		if len(symbols) > 0 {
			c.Symbols = symbols
		}
	}
	c.Timeframe = getEnvWithDefault("TIMEFRAME", c.Timeframe)
	c.CandleCount = getEnvIntWithDefault("CANDLE_COUNT", c.CandleCount)
	c.EvalInterval = getEnvDurationWithDefault("EVAL_INTERVAL", c.EvalInterval)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)

	c.MarketData.APIKey = os.Getenv("TWELVE_API_KEY")
	c.MarketData.RequestTimeout = getEnvDurationWithDefault("REQUEST_TIMEOUT", c.MarketData.RequestTimeout)
	c.MarketData.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", c.MarketData.RequestsPerSec)

	c.Classifier.TrendLookback = getEnvIntWithDefault("TREND_LOOKBACK", c.Classifier.TrendLookback)
	c.Classifier.VolatilityLookback = getEnvIntWithDefault("VOLATILITY_LOOKBACK", c.Classifier.VolatilityLookback)
	c.Classifier.TrendThreshold = getEnvFloatWithDefault("TREND_THRESHOLD", c.Classifier.TrendThreshold)
	c.Classifier.VolatilitySpike = getEnvFloatWithDefault("VOLATILITY_SPIKE", c.Classifier.VolatilitySpike)
	c.Classifier.RangingThreshold = getEnvFloatWithDefault("RANGING_THRESHOLD", c.Classifier.RangingThreshold)

	c.Risk.MinRiskReward = getEnvFloatWithDefault("MIN_RISK_REWARD", c.Risk.MinRiskReward)
	c.Risk.MaxDrawdownPercent = getEnvFloatWithDefault("MAX_DRAWDOWN_PERCENT", c.Risk.MaxDrawdownPercent)
	c.Risk.MinVolume24h = getEnvFloatWithDefault("MIN_VOLUME_24H", c.Risk.MinVolume24h)
	c.Risk.MinSuccessProbability = getEnvFloatWithDefault("MIN_SUCCESS_PROBABILITY", c.Risk.MinSuccessProbability)
	c.Risk.SuppressionWindow = getEnvDurationWithDefault("SUPPRESSION_WINDOW", c.Risk.SuppressionWindow)
	c.Risk.SuppressionPriceMove = getEnvFloatWithDefault("SUPPRESSION_PRICE_MOVE", c.Risk.SuppressionPriceMove)
	c.Risk.ATRPeriod = getEnvIntWithDefault("ATR_PERIOD", c.Risk.ATRPeriod)
	c.Risk.ApplyStopScale = getEnvBoolWithDefault("APPLY_STOP_SCALE", c.Risk.ApplyStopScale)

	c.Planner.RangeLookback = getEnvIntWithDefault("RANGE_LOOKBACK", c.Planner.RangeLookback)
	c.Planner.SwingLookback = getEnvIntWithDefault("SWING_LOOKBACK", c.Planner.SwingLookback)
	c.Planner.FallbackPercent = getEnvFloatWithDefault("FALLBACK_PERCENT", c.Planner.FallbackPercent)

	c.Optimizer.MinTrades = getEnvIntWithDefault("OPTIMIZER_MIN_TRADES", c.Optimizer.MinTrades)

	c.Storage.PlaybookPath = getEnvWithDefault("PLAYBOOK_PATH", c.Storage.PlaybookPath)
	c.Storage.RiskParamsPath = getEnvWithDefault("RISK_PARAMS_PATH", c.Storage.RiskParamsPath)

	c.Database.Enabled = getEnvBoolWithDefault("DB_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnvWithDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvWithDefault("DB_PORT", c.Database.Port)
	c.Database.User = getEnvWithDefault("DB_USER", c.Database.User)
	c.Database.Password = os.Getenv("DB_PASSWORD")
	c.Database.DBName = getEnvWithDefault("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", c.Database.SSLMode)
}

func (c *Config) validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol is required")
	}
	if c.CandleCount <= 0 {
		return fmt.Errorf("config: candle_count must be positive, got %d", c.CandleCount)
	}
	if c.EvalInterval <= 0 {
		return fmt.Errorf("config: eval_interval must be positive, got %s", c.EvalInterval)
	}
	if c.Risk.MinSuccessProbability < 0 || c.Risk.MinSuccessProbability > 1 {
		return fmt.Errorf("config: min_success_probability must be within [0,1], got %v", c.Risk.MinSuccessProbability)
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer in environment, using default")
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid float in environment, using default")
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid boolean in environment, using default")
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration in environment, using default")
	}
	return defaultValue
}
