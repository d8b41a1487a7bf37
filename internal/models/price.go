package models

import "time"

// PricePoint is a single observed price for a symbol. Immutable once recorded.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Quote is the current price and previous close for a symbol as reported by
// the quote source.
type Quote struct {
	Symbol        string
	Price         float64
	PrevClose     float64
	ChangePercent float64
	QuoteTime     time.Time
}

// Candle is one daily OHLCV bar from the historical source.
type Candle struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PercentChange returns the percent move from base to current, or 0 when
// either is unusable.
func PercentChange(base, current float64) float64 {
	if base == 0 || current == 0 {
		return 0
	}
	return (current - base) / base * 100
}

// Round2 rounds to two decimal places, matching how prices and P&L are
// reported everywhere in the engine.
func Round2(value float64) float64 {
	if value >= 0 {
		return float64(int64(value*100+0.5)) / 100
	}
	return float64(int64(value*100-0.5)) / 100
}
