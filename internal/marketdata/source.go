package marketdata

import (
	"context"

	"intraday-trade-bot-go/internal/models"
)

// QuoteSource supplies the current price and previous close for symbols.
// A symbol absent from the result means "no usable quote this tick" and the
// caller skips it; it is never reported as zero or as an error.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
}

// HistoricalSource supplies ordered historical series for a past date
// (YYYY-MM-DD in the trading time zone).
type HistoricalSource interface {
	MinuteHistory(ctx context.Context, symbol, date string) ([]models.PricePoint, error)
	DailyHistory(ctx context.Context, symbol, date string) ([]models.Candle, error)
}

// UniverseSource lists the broad candidate universe the selector ranks.
type UniverseSource interface {
	UniverseSymbols(ctx context.Context) ([]string, string, error)
}

// Source is the full market-data collaborator the engine is constructed with.
type Source interface {
	QuoteSource
	HistoricalSource
	UniverseSource
}
