package engine

import (
	"sort"
	"time"

	"intraday-trade-bot-go/internal/models"
)

// maxHistoryPoints bounds the per-symbol series; roughly two hours of
// minute-level observations.
const maxHistoryPoints = 120

// HistoryStore is the in-memory per-symbol price series. Not safe for
// concurrent use; the engine serializes access through its own lock.
type HistoryStore struct {
	bySymbol map[string][]models.PricePoint
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{bySymbol: make(map[string][]models.PricePoint)}
}

// Append records one observation and trims the series to the retention bound.
func (s *HistoryStore) Append(symbol string, point models.PricePoint) {
	series := append(s.bySymbol[symbol], point)
	if len(series) > maxHistoryPoints {
		series = series[len(series)-maxHistoryPoints:]
	}
	s.bySymbol[symbol] = series
}

// Series returns the stored series for symbol. Shared slice; callers must
// not mutate it.
func (s *HistoryStore) Series(symbol string) []models.PricePoint {
	return s.bySymbol[symbol]
}

// LatestPrice returns the most recent stored price for symbol.
func (s *HistoryStore) LatestPrice(symbol string) (float64, bool) {
	series := s.bySymbol[symbol]
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1].Price, true
}

// Symbols lists the tracked symbols in stable order.
func (s *HistoryStore) Symbols() []string {
	out := make([]string, 0, len(s.bySymbol))
	for symbol := range s.bySymbol {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Reset drops every series, as happens on a trading-date rollover.
func (s *HistoryStore) Reset() {
	s.bySymbol = make(map[string][]models.PricePoint)
}

// Export copies the full map for serialization.
func (s *HistoryStore) Export() map[string][]models.PricePoint {
	out := make(map[string][]models.PricePoint, len(s.bySymbol))
	for symbol, series := range s.bySymbol {
		out[symbol] = append([]models.PricePoint(nil), series...)
	}
	return out
}

// Restore replaces the store contents with a previously exported map,
// dropping unusable points and re-trimming each series.
func (s *HistoryStore) Restore(data map[string][]models.PricePoint) {
	next := make(map[string][]models.PricePoint, len(data))
	for symbol, series := range data {
		cleaned := make([]models.PricePoint, 0, len(series))
		for _, point := range series {
			if point.Price > 0 && !point.Time.IsZero() {
				cleaned = append(cleaned, point)
			}
		}
		if len(cleaned) > maxHistoryPoints {
			cleaned = cleaned[len(cleaned)-maxHistoryPoints:]
		}
		if len(cleaned) > 0 {
			next[symbol] = cleaned
		}
	}
	s.bySymbol = next
}

// ChangePercentOverMinutes is the percent move between the latest point and
// the newest point at least the given number of minutes older.
func (s *HistoryStore) ChangePercentOverMinutes(symbol string, minutes int) float64 {
	series := s.bySymbol[symbol]
	if len(series) < 2 {
		return 0
	}

	latest := series[len(series)-1]
	target := latest.Time.Add(-time.Duration(minutes) * time.Minute)

	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].Time.After(target) {
			return models.PercentChange(series[i].Price, latest.Price)
		}
	}
	return 0
}
