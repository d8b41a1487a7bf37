package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"intraday-trade-bot-go/internal/config"
	"intraday-trade-bot-go/internal/engine"
	"intraday-trade-bot-go/internal/logger"
	"intraday-trade-bot-go/internal/marketdata"
	"intraday-trade-bot-go/internal/strategy"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	date := flag.String("date", "", "market date to replay (YYYY-MM-DD, default: previous market day)")
	preset := flag.String("preset", "S1", "strategy preset to replay under")
	flag.Parse()

	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	registry := strategy.NewRegistry(cfg.Engine.TotalCapital)
	selected, err := registry.Get(strategy.PresetID(*preset))
	if err != nil {
		log.Fatal("Unknown preset", zap.String("preset", *preset))
	}

	runDate := *date
	if runDate == "" {
		runDate = engine.PreviousMarketDate(time.Now())
	}

	source := marketdata.NewClient(&cfg.MarketData, log)
	runner := engine.NewTrialRunner(source, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := runner.Run(ctx, runDate, flag.Args(), selected.Config)
	if err != nil {
		log.Fatal("Trial failed", zap.Error(err))
	}

	printResult(result, selected)
}

func printResult(result *engine.TrialResult, preset strategy.Preset) {
	fmt.Printf("Trial %s under %s (%s)\n", result.Date, preset.ID, preset.Name)
	fmt.Printf("Symbols tested: %d\n\n", result.Summary.SymbolsTested)

	for _, sim := range result.PerSymbol {
		fmt.Printf("%-14s candles=%-4d trades=%-3d realized=%9.2f unrealized=%9.2f\n",
			sim.Symbol, len(sim.Points), len(sim.Trades), sim.RealizedPnl, sim.UnrealizedPnl)
	}

	fmt.Println("\nTrades:")
	for _, trade := range result.Trades {
		line := fmt.Sprintf("%s  %-10s %-14s %4d @ %10.2f  %s",
			trade.Time.Format("15:04"), trade.Action, trade.Symbol, trade.Units, trade.Price, trade.Reason)
		if trade.Action.IsExit() {
			line += fmt.Sprintf("  pnl=%.2f", trade.Pnl)
		}
		fmt.Println(line)
	}

	fmt.Printf("\nTotal trades:     %d\n", result.Summary.TotalTrades)
	fmt.Printf("Realized P&L:     %.2f\n", result.Summary.TotalRealizedPnl)
	fmt.Printf("Unrealized P&L:   %.2f\n", result.Summary.TotalUnrealizedPnl)
	fmt.Printf("Total P&L:        %.2f\n", result.Summary.TotalPnl)

	if result.Summary.TotalPnl < 0 {
		os.Exit(1)
	}
}
