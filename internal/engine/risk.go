package engine

import (
	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"
)

// DailyRealizedPnl sums realized P&L of exit trades dated on the given
// trading day.
func DailyRealizedPnl(ledger *strategy.Ledger, date string) float64 {
	return ledger.RealizedPnl(func(trade models.Trade) bool {
		return models.MarketDate(trade.Time) == date
	})
}

// UnrealizedPnl marks every open position to market against the quote map.
// Positions without a quote contribute nothing.
func UnrealizedPnl(positions map[string]*models.Position, quotes map[string]models.Quote) float64 {
	var total float64
	for symbol, pos := range positions {
		quote, ok := quotes[symbol]
		if !ok {
			continue
		}
		total += pos.UnrealizedPnl(quote.Price)
	}
	return total
}

// CutoffBreached reports whether today's realized plus unrealized P&L has
// fallen to or below the configured maximum daily loss. The caller makes the
// resulting flag sticky for the rest of the day.
func CutoffBreached(cfg strategy.Config, ledger *strategy.Ledger, positions map[string]*models.Position, quotes map[string]models.Quote, date string) bool {
	net := DailyRealizedPnl(ledger, date) + UnrealizedPnl(positions, quotes)
	return net <= -cfg.MaxDailyLossAmount()
}
