package main

import (
	"context"
	"fmt"
	"log" // Standard log only for fatal errors before the logger is up
	"net/http"
	"time"

	"cryptoScannerBot/config"
	"cryptoScannerBot/internal/adapters/binanceclient"
	"cryptoScannerBot/internal/adapters/logger"
	"cryptoScannerBot/internal/adapters/metrics"
	"cryptoScannerBot/internal/adapters/notifier"
	"cryptoScannerBot/internal/adapters/settingsfile"
	"cryptoScannerBot/internal/adapters/sqlite"
	"cryptoScannerBot/internal/app"
	"cryptoScannerBot/internal/candles"
	"cryptoScannerBot/internal/domain"
	"cryptoScannerBot/internal/ports"
	"cryptoScannerBot/internal/scanner"
	"cryptoScannerBot/internal/trading"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized")

	// 4. Initialize Settings Store
	settingsStore, err := settingsfile.New(cfg.SettingsPath, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize settings store")
		log.Fatalf("FATAL: Failed to initialize settings store: %v", err)
	}
	settings, err := settingsStore.Load(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load settings")
		log.Fatalf("FATAL: Failed to load settings: %v", err)
	}

	// 5. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		Logger:               appLogger,
		RequestTimeout:       cfg.RequestTimeout,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized")

	// 6. Observability: Prometheus metrics and the event broadcaster
	botMetrics := metrics.New()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", botMetrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLogger.Error(ctx, err, "Metrics server exited", map[string]interface{}{"addr": cfg.MetricsAddr})
			}
		}()
		appLogger.Info(ctx, "Metrics server listening", map[string]interface{}{"addr": cfg.MetricsAddr})
	}
	broadcaster := notifier.New(appLogger)

	// 7. Shared market-data state
	store := candles.NewStore()
	pairs := scanner.NewPairSet()

	// 8. Initialize Scoring Strategy
	scorer, err := buildScorer(cfg.StrategyID, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize scoring strategy")
		log.Fatalf("FATAL: Failed to initialize scoring strategy: %v", err)
	}
	appLogger.Info(ctx, "Scoring strategy initialized", map[string]interface{}{"strategy": scorer.Name()})

	// 9. Pair Discovery
	discovery, err := scanner.NewDiscovery(scanner.DiscoveryConfig{
		QuoteAsset:     cfg.QuoteAsset,
		RegimeInterval: cfg.RegimeInterval,
		FastMAPeriod:   20,
		SlowMAPeriod:   50,
	}, appLogger, binanceClient, repo, store)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize pair discovery")
		log.Fatalf("FATAL: Failed to initialize pair discovery: %v", err)
	}

	// 10. Restore or create the bot-state aggregate
	state, err := repo.LoadState(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load bot state")
		log.Fatalf("FATAL: Failed to load bot state: %v", err)
	}
	if state == nil {
		state = domain.NewBotState(settings.InitialVirtualBalance)
		appLogger.Info(ctx, "No persisted state found, starting fresh", map[string]interface{}{
			"balance": state.Balance,
		})
	} else {
		appLogger.Info(ctx, "Bot state restored", map[string]interface{}{
			"balance":       state.Balance,
			"openPositions": len(state.ActivePositions),
			"trades":        len(state.TradeHistory),
		})
	}

	// 11. Position Manager
	manager, err := trading.NewManager(trading.Config{
		Logger:    appLogger,
		StateRepo: repo,
		Sink:      broadcaster,
		Metrics:   botMetrics,
		Cooldowns: trading.NewCooldownRegistry(),
		State:     state,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize position manager")
		log.Fatalf("FATAL: Failed to initialize position manager: %v", err)
	}

	// 12. Engine
	engine, err := app.NewEngine(app.Deps{
		Cfg:       cfg,
		Logger:    appLogger,
		Exchange:  binanceClient,
		Settings:  settingsStore,
		Store:     store,
		Pairs:     pairs,
		Discovery: discovery,
		Scorer:    scorer,
		Manager:   manager,
		Sink:      broadcaster,
		Metrics:   botMetrics,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize engine")
		log.Fatalf("FATAL: Failed to initialize engine: %v", err)
	}

	if err := engine.Run(ctx); err != nil && err != context.Canceled {
		appLogger.Error(ctx, err, "Engine exited with error")
		log.Fatalf("Engine exited with error: %v", err)
	}
	appLogger.Info(context.Background(), "Shutdown complete")
}

func buildScorer(strategyID string, appLogger ports.Logger) (ports.Scorer, error) {
	switch strategyID {
	case scanner.StrategyFilterChain:
		return scanner.NewFilterChainScorer(scanner.FilterChainConfig{}, appLogger)
	case scanner.StrategyBreakout:
		return scanner.NewBreakoutScorer(scanner.BreakoutConfig{}, appLogger)
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategyID)
	}
}
