package engine

import (
	"context"
	"fmt"
	"time"

	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"

	"go.uber.org/zap"
)

// OptimizerResult records which preset the post-close comparison promoted.
type OptimizerResult struct {
	Date         string    `json:"date"`
	SourcePreset string    `json:"sourcePreset"`
	SourceName   string    `json:"sourceName"`
	TotalPnl     float64   `json:"totalPnl"`
	TotalTrades  int       `json:"totalTrades"`
	CompletedAt  time.Time `json:"completedAt"`
}

// AdaptiveOptimizer replays the previous market day under each candidate
// preset and publishes the winner into the auto-optimized slot. Named presets
// are never overwritten.
type AdaptiveOptimizer struct {
	trial    *TrialRunner
	registry *strategy.Registry
	logger   *zap.Logger
}

func NewAdaptiveOptimizer(trial *TrialRunner, registry *strategy.Registry, logger *zap.Logger) *AdaptiveOptimizer {
	return &AdaptiveOptimizer{trial: trial, registry: registry, logger: logger}
}

// Run compares the long-strategy presets plus the currently active one on
// date and activates the best performer under the auto slot. A preset whose
// trial fails is skipped rather than failing the whole comparison.
func (o *AdaptiveOptimizer) Run(ctx context.Context, date string) (*OptimizerResult, error) {
	candidates := []strategy.PresetID{strategy.PresetS1, strategy.PresetS2, strategy.PresetS3}
	active := o.registry.Active()
	if !containsPreset(candidates, active.ID) && active.ID != strategy.PresetAuto {
		candidates = append(candidates, active.ID)
	}

	var best *OptimizerResult
	var bestCfg strategy.Config
	attempted := 0
	for _, id := range candidates {
		preset, err := o.registry.Get(id)
		if err != nil {
			continue
		}
		attempted++

		result, err := o.trial.Run(ctx, date, nil, preset.Config)
		if err != nil {
			o.logger.Warn("Optimizer trial failed",
				zap.String("preset", string(id)),
				zap.String("date", date),
				zap.Error(err))
			continue
		}

		o.logger.Info("Optimizer trial complete",
			zap.String("preset", string(id)),
			zap.String("date", date),
			zap.Float64("totalPnl", result.Summary.TotalPnl),
			zap.Int("trades", result.Summary.TotalTrades))

		if best == nil || result.Summary.TotalPnl > best.TotalPnl {
			best = &OptimizerResult{
				Date:         date,
				SourcePreset: string(id),
				SourceName:   preset.Name,
				TotalPnl:     result.Summary.TotalPnl,
				TotalTrades:  result.Summary.TotalTrades,
				CompletedAt:  time.Now(),
			}
			bestCfg = result.Config
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no preset produced a usable trial for %s (attempted %d)", date, attempted)
	}

	autoName := fmt.Sprintf("Auto Optimized (%s) from %s", date, best.SourcePreset)
	o.registry.PublishAuto(autoName, bestCfg)
	o.logger.Info("Optimizer published auto preset",
		zap.String("name", autoName),
		zap.Float64("totalPnl", best.TotalPnl))

	return best, nil
}

// ShouldRun reports whether now sits in the post-close optimization window
// for cfg and the given already-optimized date.
func (o *AdaptiveOptimizer) ShouldRun(cfg strategy.Config, now time.Time, optimizedDate string) bool {
	if !inPostCloseWindow(now, cfg) {
		return false
	}
	return optimizedDate != models.MarketDate(now)
}

func containsPreset(list []strategy.PresetID, id strategy.PresetID) bool {
	for _, candidate := range list {
		if candidate == id {
			return true
		}
	}
	return false
}
