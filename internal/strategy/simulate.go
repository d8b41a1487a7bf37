package strategy

import (
	"sort"

	"intraday-trade-bot-go/internal/models"
)

// SymbolSimulation is the outcome of replaying one symbol's price series.
type SymbolSimulation struct {
	Symbol        string              `json:"symbol"`
	Points        []models.PricePoint `json:"-"`
	Trades        []models.Trade      `json:"trades"`
	OpenPosition  *models.Position    `json:"openPosition,omitempty"`
	RealizedPnl   float64             `json:"realizedPnl"`
	UnrealizedPnl float64             `json:"unrealizedPnl"`
	TotalPnl      float64             `json:"totalPnl"`
}

// Simulate replays an ordered price series through EvaluateTick with an
// explicit config. It is pure: identical inputs always produce the identical
// trade sequence, which is what lets the historical trial runner stand in for
// the live loop.
func Simulate(symbol string, points []models.PricePoint, cfg Config) SymbolSimulation {
	ledger := NewLedger()
	history := make([]models.PricePoint, 0, len(points))
	var pos *models.Position

	for _, point := range points {
		history = append(history, point)

		var trade *models.Trade
		pos, trade = EvaluateTick(symbol, history, pos, cfg)
		if trade != nil {
			ledger.Append(*trade)
		}
	}

	realized := models.Round2(ledger.RealizedPnl(nil))
	var unrealized float64
	if pos != nil && len(points) > 0 {
		unrealized = models.Round2(pos.UnrealizedPnl(points[len(points)-1].Price))
	}

	return SymbolSimulation{
		Symbol:        symbol,
		Points:        points,
		Trades:        ledger.Trades(),
		OpenPosition:  pos,
		RealizedPnl:   realized,
		UnrealizedPnl: unrealized,
		TotalPnl:      models.Round2(realized + unrealized),
	}
}

// MergeTrades flattens per-symbol simulations into one time-ordered ledger.
func MergeTrades(simulations []SymbolSimulation) []models.Trade {
	var all []models.Trade
	for _, sim := range simulations {
		all = append(all, sim.Trades...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Time.Before(all[j].Time)
	})
	return all
}
