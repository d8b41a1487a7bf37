package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"intraday-trade-bot-go/internal/marketdata"
	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"

	"go.uber.org/zap"
)

// TrialSelectedSymbol describes a candidate that made it into a trial run.
type TrialSelectedSymbol struct {
	Symbol                string  `json:"symbol"`
	IntradayChangePercent float64 `json:"intradayChangePercent"`
	Candles               int     `json:"candles"`
}

// TrialSummary aggregates a trial's outcome.
type TrialSummary struct {
	SymbolsTested      int     `json:"symbolsTested"`
	TotalTrades        int     `json:"totalTrades"`
	TotalRealizedPnl   float64 `json:"totalRealizedPnl"`
	TotalUnrealizedPnl float64 `json:"totalUnrealizedPnl"`
	TotalPnl           float64 `json:"totalPnl"`
}

// TrialResult is the deterministic outcome of replaying one date through the
// live decision logic with an explicit config.
type TrialResult struct {
	Date            string                      `json:"date"`
	Config          strategy.Config             `json:"config"`
	SelectedSymbols []TrialSelectedSymbol       `json:"selectedSymbols"`
	Summary         TrialSummary                `json:"summary"`
	Trades          []models.Trade              `json:"trades"`
	PerSymbol       []strategy.SymbolSimulation `json:"perSymbol"`
}

// TrialRunner replays historical minute series through the same
// TrendDetector and lifecycle functions the live loop uses. It owns no live
// state, so trials may run concurrently with the engine.
type TrialRunner struct {
	source marketdata.Source
	logger *zap.Logger
}

func NewTrialRunner(source marketdata.Source, logger *zap.Logger) *TrialRunner {
	return &TrialRunner{source: source, logger: logger}
}

type trialCandidate struct {
	symbol                string
	points                []models.PricePoint
	intradayChangePercent float64
}

// Run replays date for the given symbols (the automatic universe when nil)
// under cfg. Per-symbol fetch failures are isolated: one bad symbol never
// invalidates the rest of the comparison.
func (r *TrialRunner) Run(ctx context.Context, date string, symbols []string, cfg strategy.Config) (*TrialResult, error) {
	if date == "" {
		return nil, fmt.Errorf("trial date is required")
	}

	if len(symbols) == 0 {
		universe, source, err := r.source.UniverseSymbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not resolve trial universe: %w", err)
		}
		r.logger.Debug("Trial universe resolved", zap.String("source", source), zap.Int("size", len(universe)))
		symbols = universe
	}

	candidates := r.fetchCandidates(ctx, symbols, date)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].intradayChangePercent > candidates[j].intradayChangePercent
	})

	if cfg.SelectionLimit > 0 && len(candidates) > cfg.SelectionLimit {
		candidates = candidates[:cfg.SelectionLimit]
	}

	return buildTrialResult(date, candidates, cfg), nil
}

func (r *TrialRunner) fetchCandidates(ctx context.Context, symbols []string, date string) []trialCandidate {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var candidates []trialCandidate

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			points, err := r.source.MinuteHistory(ctx, symbol, date)
			if err != nil {
				r.logger.Debug("Trial symbol skipped", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			if len(points) < 2 {
				return
			}

			mu.Lock()
			candidates = append(candidates, trialCandidate{
				symbol:                symbol,
				points:                points,
				intradayChangePercent: models.PercentChange(points[0].Price, points[len(points)-1].Price),
			})
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return candidates
}

func buildTrialResult(date string, candidates []trialCandidate, cfg strategy.Config) *TrialResult {
	simulations := make([]strategy.SymbolSimulation, 0, len(candidates))
	selected := make([]TrialSelectedSymbol, 0, len(candidates))

	var totalRealized, totalUnrealized float64
	for _, candidate := range candidates {
		sim := strategy.Simulate(candidate.symbol, candidate.points, cfg)
		simulations = append(simulations, sim)
		totalRealized += sim.RealizedPnl
		totalUnrealized += sim.UnrealizedPnl
		selected = append(selected, TrialSelectedSymbol{
			Symbol:                candidate.symbol,
			IntradayChangePercent: models.Round2(candidate.intradayChangePercent),
			Candles:               len(candidate.points),
		})
	}

	trades := strategy.MergeTrades(simulations)

	return &TrialResult{
		Date:            date,
		Config:          cfg,
		SelectedSymbols: selected,
		Summary: TrialSummary{
			SymbolsTested:      len(selected),
			TotalTrades:        len(trades),
			TotalRealizedPnl:   models.Round2(totalRealized),
			TotalUnrealizedPnl: models.Round2(totalUnrealized),
			TotalPnl:           models.Round2(totalRealized + totalUnrealized),
		},
		Trades:    trades,
		PerSymbol: simulations,
	}
}
