// Command fetch_klines pre-hydrates the candle table for a symbol so
// the scanner starts with full indicator context instead of waiting
// through a live warm-up.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"cryptoScannerBot/config"
	"cryptoScannerBot/internal/adapters/binanceclient"
	"cryptoScannerBot/internal/adapters/logger"
	"cryptoScannerBot/internal/adapters/sqlite"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "symbol to fetch")
	interval := flag.String("interval", "1h", "kline interval")
	limit := flag.Int("limit", 200, "number of candles to fetch")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		Logger:               appLogger,
		RequestTimeout:       cfg.RequestTimeout,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	// 4. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	ctx := context.Background()

	// Resume from the newest stored candle so re-runs only fetch the
	// missing window.
	last, err := repo.LastOpenTime(ctx, *symbol, *interval)
	if err != nil {
		log.Fatalf("Error reading stored history: %v", err)
	}
	var startTime time.Time
	if !last.IsZero() {
		startTime = last.Add(time.Millisecond)
	}

	appLogger.Info(ctx, "Fetching klines", map[string]interface{}{
		"symbol":   *symbol,
		"interval": *interval,
		"limit":    *limit,
		"from":     startTime,
	})
	klines, err := binanceClient.GetKlines(ctx, *symbol, *interval, startTime, *limit)
	if err != nil {
		log.Fatalf("Error fetching klines: %v", err)
	}
	if len(klines) == 0 {
		appLogger.Info(ctx, "No new candles to store")
		return
	}

	if err := repo.SaveCandles(ctx, klines); err != nil {
		log.Fatalf("Error persisting candles: %v", err)
	}
	appLogger.Info(ctx, "Candles stored", map[string]interface{}{
		"count": len(klines),
		"first": klines[0].OpenTime,
		"last":  klines[len(klines)-1].OpenTime,
	})
}
