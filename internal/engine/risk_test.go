package engine

import (
	"testing"
	"time"

	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"

	"github.com/stretchr/testify/assert"
)

func TestDailyRealizedPnl_FiltersByDate(t *testing.T) {
	ledger := strategy.NewLedger()
	today := time.Date(2025, 4, 7, 10, 30, 0, 0, models.MarketLocation())
	yesterday := today.AddDate(0, 0, -1)

	ledger.Append(models.Trade{Action: models.ActionSell, Symbol: "A", Price: 100, Units: 10, Time: yesterday, Pnl: -40})
	ledger.Append(models.Trade{Action: models.ActionSell, Symbol: "A", Price: 101, Units: 10, Time: today, Pnl: -70})
	ledger.Append(models.Trade{Action: models.ActionBuy, Symbol: "B", Price: 50, Units: 5, Time: today})

	assert.InDelta(t, -70.0, DailyRealizedPnl(ledger, models.MarketDate(today)), 0.001)
}

func TestCutoffBreached(t *testing.T) {
	cfg := strategy.Config{TotalCapital: 10000, MaxDailyLossPercent: 1}
	today := time.Date(2025, 4, 7, 11, 0, 0, 0, models.MarketLocation())
	date := models.MarketDate(today)

	ledger := strategy.NewLedger()
	ledger.Append(models.Trade{Action: models.ActionSell, Symbol: "A", Price: 99, Units: 10, Time: today, Pnl: -70})

	positions := map[string]*models.Position{
		"B.NS": {
			Symbol:         "B.NS",
			Side:           models.SideLong,
			EntryPrice:     200,
			Units:          10,
			RemainingUnits: 10,
			EntryTime:      today,
		},
	}

	// Unrealized -50 takes the day to -120, past the -100 cutoff.
	quotes := map[string]models.Quote{"B.NS": {Symbol: "B.NS", Price: 195}}
	assert.True(t, CutoffBreached(cfg, ledger, positions, quotes, date))

	// Unrealized -20 keeps the day at -90, inside the limit.
	quotes["B.NS"] = models.Quote{Symbol: "B.NS", Price: 198}
	assert.False(t, CutoffBreached(cfg, ledger, positions, quotes, date))

	// Position without a quote contributes nothing.
	assert.False(t, CutoffBreached(cfg, ledger, positions, map[string]models.Quote{}, date))
}
