package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intraday-trade-bot-go/internal/config"
	"intraday-trade-bot-go/internal/database"
	"intraday-trade-bot-go/internal/engine"
	"intraday-trade-bot-go/internal/logger"
	"intraday-trade-bot-go/internal/marketdata"
	"intraday-trade-bot-go/internal/server"
	"intraday-trade-bot-go/internal/strategy"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open trade archive database", zap.Error(err))
	}
	log.Info("Trade archive ready and schema migrated.")

	source := marketdata.NewClient(&cfg.MarketData, log)

	registry := strategy.NewRegistry(cfg.Engine.TotalCapital)
	if cfg.Engine.ActivePreset != "" {
		if _, err := registry.Apply(strategy.PresetID(cfg.Engine.ActivePreset)); err != nil {
			log.Fatal("Invalid active preset in config", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	eng := engine.NewEngine(cfg, registry, source, db, log)

	api := server.NewAPIServer(eng, cfg.Server.Port, log)
	api.Start()

	eng.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Warn("API server shutdown error", zap.Error(err))
	}

	log.Info("Engine has been shut down.")
}
