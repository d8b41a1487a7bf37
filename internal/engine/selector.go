package engine

import (
	"sort"

	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"
)

// SelectedSymbol is one basket member with its ranking stats.
type SelectedSymbol struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
}

// SelectTopMovers ranks the quoted universe by intraday percent change and
// returns the active basket. Symbols a slot cannot afford a single unit of
// are dropped before ranking. The offset cursor rotates the selection window
// through the ranked list (modulo its length) so a stagnant basket gets
// replaced by the next-ranked band instead of resampling the same leaders.
func SelectTopMovers(quotes map[string]models.Quote, cfg strategy.Config, offset int) []SelectedSymbol {
	ranked := make([]SelectedSymbol, 0, len(quotes))
	for _, quote := range quotes {
		if cfg.CalculateUnits(quote.Price) <= 0 {
			continue
		}
		ranked = append(ranked, SelectedSymbol{
			Symbol:        quote.Symbol,
			Price:         quote.Price,
			ChangePercent: quote.ChangePercent,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ChangePercent == ranked[j].ChangePercent {
			return ranked[i].Symbol < ranked[j].Symbol
		}
		return ranked[i].ChangePercent > ranked[j].ChangePercent
	})

	if cfg.SelectionLimit > 0 {
		if len(ranked) > cfg.SelectionLimit {
			ranked = ranked[:cfg.SelectionLimit]
		}
		return ranked
	}

	if len(ranked) == 0 {
		return nil
	}

	count := cfg.TopN
	if count > len(ranked) {
		count = len(ranked)
	}

	normalized := ((offset % len(ranked)) + len(ranked)) % len(ranked)
	selected := make([]SelectedSymbol, 0, count)
	for i := 0; i < count; i++ {
		selected = append(selected, ranked[(normalized+i)%len(ranked)])
	}
	return selected
}
