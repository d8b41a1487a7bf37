package engine

import (
	"testing"

	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteUniverse() map[string]models.Quote {
	return map[string]models.Quote{
		"A.NS": {Symbol: "A.NS", Price: 100, ChangePercent: 5.0},
		"B.NS": {Symbol: "B.NS", Price: 150, ChangePercent: 4.0},
		"C.NS": {Symbol: "C.NS", Price: 200, ChangePercent: 3.0},
		"D.NS": {Symbol: "D.NS", Price: 250, ChangePercent: 2.0},
		"E.NS": {Symbol: "E.NS", Price: 300, ChangePercent: 1.0},
		"F.NS": {Symbol: "F.NS", Price: 120, ChangePercent: 0.5},
	}
}

func selectorConfig() strategy.Config {
	return strategy.Config{TotalCapital: 10000, TopN: 3}
}

func basketSymbols(selected []SelectedSymbol) []string {
	out := make([]string, 0, len(selected))
	for _, s := range selected {
		out = append(out, s.Symbol)
	}
	return out
}

func TestSelectTopMovers_RanksByChange(t *testing.T) {
	selected := SelectTopMovers(quoteUniverse(), selectorConfig(), 0)
	assert.Equal(t, []string{"A.NS", "B.NS", "C.NS"}, basketSymbols(selected))
}

func TestSelectTopMovers_OffsetRotates(t *testing.T) {
	cfg := selectorConfig()
	universe := quoteUniverse()

	assert.Equal(t, []string{"D.NS", "E.NS", "F.NS"}, basketSymbols(SelectTopMovers(universe, cfg, 3)))
	// The cursor wraps around the ranked list.
	assert.Equal(t, []string{"F.NS", "A.NS", "B.NS"}, basketSymbols(SelectTopMovers(universe, cfg, 5)))
	assert.Equal(t, []string{"A.NS", "B.NS", "C.NS"}, basketSymbols(SelectTopMovers(universe, cfg, 6)))
}

func TestSelectTopMovers_DropsUnaffordable(t *testing.T) {
	cfg := selectorConfig()
	universe := quoteUniverse()
	// Slot is 10000/3; anything above it cannot buy one unit.
	universe["A.NS"] = models.Quote{Symbol: "A.NS", Price: 5000, ChangePercent: 5.0}

	selected := SelectTopMovers(universe, cfg, 0)
	assert.Equal(t, []string{"B.NS", "C.NS", "D.NS"}, basketSymbols(selected))
}

func TestSelectTopMovers_SelectionLimitOverridesRotation(t *testing.T) {
	cfg := selectorConfig()
	cfg.SelectionLimit = 2

	selected := SelectTopMovers(quoteUniverse(), cfg, 3)
	assert.Equal(t, []string{"A.NS", "B.NS"}, basketSymbols(selected))
}

func TestSelectTopMovers_TieBreaksBySymbol(t *testing.T) {
	universe := map[string]models.Quote{
		"Z.NS": {Symbol: "Z.NS", Price: 100, ChangePercent: 2.0},
		"M.NS": {Symbol: "M.NS", Price: 100, ChangePercent: 2.0},
	}
	selected := SelectTopMovers(universe, selectorConfig(), 0)
	require.Len(t, selected, 2)
	assert.Equal(t, "M.NS", selected[0].Symbol)
}

func TestSelectTopMovers_EmptyUniverse(t *testing.T) {
	assert.Nil(t, SelectTopMovers(nil, selectorConfig(), 0))
}
