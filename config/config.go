package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cryptoScannerBot/internal/adapters/logger"
)

// Config holds the infrastructure configuration loaded from the
// environment. Trading parameters live in the settings snapshot
// (domain.BotSettings), not here.
type Config struct {
	// Binance API (optional; every endpoint the core uses is public)
	APIKey    string
	SecretKey string

	// Market universe
	QuoteAsset     string // e.g. "USDT"
	ScanInterval   string // scoring timeframe, e.g. "1m"
	RegimeInterval string // long timeframe for market regime, e.g. "1h"
	SyncSeconds    int    // pair-discovery cadence

	// Strategy selection
	StrategyID string // "filter_chain" (default) or "breakout"

	// Persistence
	DBPath       string
	SettingsPath string

	// Observability
	LogLevel    logger.LogLevel
	MetricsAddr string // empty disables the metrics server

	// Connection settings
	RequestTimeout       time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// Engine
	EventQueueSize int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string

	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")

	cfg.QuoteAsset = strings.ToUpper(getEnv("QUOTE_ASSET", "USDT"))
	if cfg.QuoteAsset == "" {
		errs = append(errs, "QUOTE_ASSET must be set")
	}
	cfg.ScanInterval = getEnv("SCAN_INTERVAL", "1m")
	cfg.RegimeInterval = getEnv("REGIME_INTERVAL", "1h")
	if cfg.ScanInterval == cfg.RegimeInterval {
		errs = append(errs, "SCAN_INTERVAL and REGIME_INTERVAL must differ")
	}

	cfg.SyncSeconds = getEnvAsInt("SYNC_SECONDS", 300)
	if cfg.SyncSeconds <= 0 {
		errs = append(errs, "SYNC_SECONDS must be positive")
	}

	cfg.StrategyID = getEnv("STRATEGY", "filter_chain")

	cfg.DBPath = getEnv("DB_PATH", "./data/scanner_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.SettingsPath = getEnv("SETTINGS_PATH", "./data/settings.yaml")
	if cfg.SettingsPath == "" {
		errs = append(errs, "SETTINGS_PATH must be set")
	}

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9100")

	requestTimeoutSeconds := getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 10)
	if requestTimeoutSeconds <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	cfg.RequestTimeout = time.Duration(requestTimeoutSeconds) * time.Second

	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	cfg.EventQueueSize = getEnvAsInt("EVENT_QUEUE_SIZE", 1024)
	if cfg.EventQueueSize <= 0 {
		errs = append(errs, "EVENT_QUEUE_SIZE must be positive")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
