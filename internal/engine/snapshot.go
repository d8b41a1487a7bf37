package engine

import (
	"time"

	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"
)

const snapshotTradeLimit = 100

// SnapshotStatus is the operational half of a snapshot.
type SnapshotStatus struct {
	EngineID          string            `json:"engineId"`
	StartTime         time.Time         `json:"startTime"`
	LastRun           time.Time         `json:"lastRun"`
	CycleCount        int64             `json:"cycleCount"`
	LastError         string            `json:"lastError,omitempty"`
	Phase             Phase             `json:"phase"`
	MarketDate        string            `json:"marketDate"`
	CutoffHit         bool              `json:"cutoffHit"`
	ActivePreset      strategy.PresetID `json:"activePresetId"`
	ActivePresetName  string            `json:"activePresetName"`
	UniverseSource    string            `json:"universeSource,omitempty"`
	UniverseSize      int               `json:"universeSize"`
	SelectionOffset   int               `json:"selectionOffset"`
	OptimizedDate     string            `json:"optimizedDate,omitempty"`
	LastOptimization  *OptimizerResult  `json:"lastOptimization,omitempty"`
	LastOptimizeError string            `json:"lastOptimizeError,omitempty"`
}

// SnapshotSymbol is one basket symbol annotated with short-horizon moves and
// trend flags, plus its open position when there is one.
type SnapshotSymbol struct {
	Symbol        string           `json:"symbol"`
	Price         float64          `json:"price"`
	ChangePercent float64          `json:"changePercent"`
	Move1Min      float64          `json:"move1Min"`
	Move3Min      float64          `json:"move3Min"`
	Move6Min      float64          `json:"move6Min"`
	Move10Min     float64          `json:"move10Min"`
	Uptrend       bool             `json:"uptrend"`
	Downtrend     bool             `json:"downtrend"`
	Position      *models.Position `json:"position,omitempty"`
}

// SnapshotSummary totals the day's performance.
type SnapshotSummary struct {
	RealizedPnlToday float64 `json:"realizedPnlToday"`
	UnrealizedPnl    float64 `json:"unrealizedPnl"`
	TotalPnl         float64 `json:"totalPnl"`
	TotalTrades      int     `json:"totalTrades"`
	OpenPositions    int     `json:"openPositions"`
	MaxDailyLoss     float64 `json:"maxDailyLoss"`
}

// Snapshot is the full read-only view served to clients.
type Snapshot struct {
	GeneratedAt   time.Time         `json:"generatedAt"`
	Status        SnapshotStatus    `json:"status"`
	Config        strategy.Config   `json:"config"`
	Symbols       []SnapshotSymbol  `json:"symbols"`
	OpenPositions []models.Position `json:"openPositions"`
	Trades        []models.Trade    `json:"trades"`
	Summary       SnapshotSummary   `json:"summary"`
}

// Snapshot assembles a consistent view of the engine under its lock.
func (e *Engine) Snapshot() *Snapshot {
	now := e.now()
	active := e.registry.Active()
	cfg := active.Config

	e.mu.Lock()
	defer e.mu.Unlock()

	symbols := make([]SnapshotSymbol, 0, len(e.basket))
	for _, selected := range e.basket {
		series := e.history.Series(selected.Symbol)
		price := selected.Price
		if latest, ok := e.history.LatestPrice(selected.Symbol); ok {
			price = latest
		}
		entry := SnapshotSymbol{
			Symbol:        selected.Symbol,
			Price:         price,
			ChangePercent: selected.ChangePercent,
			Move1Min:      models.Round2(e.history.ChangePercentOverMinutes(selected.Symbol, 1)),
			Move3Min:      models.Round2(e.history.ChangePercentOverMinutes(selected.Symbol, 3)),
			Move6Min:      models.Round2(e.history.ChangePercentOverMinutes(selected.Symbol, 6)),
			Move10Min:     models.Round2(e.history.ChangePercentOverMinutes(selected.Symbol, 10)),
			Uptrend:       strategy.HasUptrend(series, cfg.BuyContinuousRiseMinutes, cfg.TrendStrengthThreshold),
			Downtrend:     strategy.HasDowntrend(series, cfg.ShortContinuousFallMinutes, cfg.TrendStrengthThreshold),
		}
		if pos, open := e.positions[selected.Symbol]; open {
			copied := *pos
			entry.Position = &copied
		}
		symbols = append(symbols, entry)
	}

	openPositions := make([]models.Position, 0, len(e.positions))
	var unrealized float64
	for _, pos := range e.positions {
		openPositions = append(openPositions, *pos)
		if price, ok := e.history.LatestPrice(pos.Symbol); ok {
			unrealized += pos.UnrealizedPnl(price)
		}
	}

	all := e.ledger.Trades()
	limit := snapshotTradeLimit
	if len(all) < limit {
		limit = len(all)
	}
	trades := make([]models.Trade, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		trades = append(trades, all[i])
	}

	realizedToday := DailyRealizedPnl(e.ledger, e.daily.Date)

	return &Snapshot{
		GeneratedAt: now,
		Status: SnapshotStatus{
			EngineID:          e.ID,
			StartTime:         e.StartTime,
			LastRun:           e.lastRun,
			CycleCount:        e.cycleCount,
			LastError:         e.lastError,
			Phase:             ResolvePhase(now, cfg),
			MarketDate:        e.daily.Date,
			CutoffHit:         e.daily.CutoffHit,
			ActivePreset:      active.ID,
			ActivePresetName:  active.Name,
			UniverseSource:    e.universeSource,
			UniverseSize:      e.universeSize,
			SelectionOffset:   e.selectionOffset,
			OptimizedDate:     e.optimizedDate,
			LastOptimization:  e.lastOptimization,
			LastOptimizeError: e.lastOptimizeErr,
		},
		Config:        cfg,
		Symbols:       symbols,
		OpenPositions: openPositions,
		Trades:        trades,
		Summary: SnapshotSummary{
			RealizedPnlToday: models.Round2(realizedToday),
			UnrealizedPnl:    models.Round2(unrealized),
			TotalPnl:         models.Round2(realizedToday + unrealized),
			TotalTrades:      len(all),
			OpenPositions:    len(openPositions),
			MaxDailyLoss:     cfg.MaxDailyLossAmount(),
		},
	}
}
