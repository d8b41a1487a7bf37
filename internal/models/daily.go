package models

// DailyControl tracks the per-day loss circuit breaker. CutoffHit is sticky:
// once set it stays set until the trading date rolls over.
type DailyControl struct {
	Date      string `json:"date"`
	CutoffHit bool   `json:"cutoffHit"`
}
