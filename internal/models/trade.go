package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Trade is one immutable ledger entry produced by a lifecycle transition.
// Pnl is only set on exit trades.
type Trade struct {
	Action   Action    `json:"action"`
	Symbol   string    `json:"symbol"`
	PresetID string    `json:"presetId"`
	Price    float64   `json:"price"`
	Units    int       `json:"units"`
	Time     time.Time `json:"time"`
	Reason   string    `json:"reason"`
	Pnl      float64   `json:"pnl,omitempty"`
}

// DedupKey is the composite identity used to guard the ledger against
// double-emission of the same transition within one evaluation pass.
func (t Trade) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%.4f|%d",
		t.Action, t.Symbol, t.Time.UTC().Format(time.RFC3339Nano), t.Price, t.Units)
}

// TradeRecord is the durable archive row for an executed trade.
type TradeRecord struct {
	gorm.Model
	Action    string  `json:"action"`
	Symbol    string  `json:"symbol"`
	PresetID  string  `json:"preset_id"`
	Price     float64 `json:"price"`
	Units     int     `json:"units"`
	Timestamp int64   `json:"timestamp"`
	Reason    string  `json:"reason"`
	Pnl       float64 `json:"pnl"`
}

// NewTradeRecord converts a ledger entry into its archive row.
func NewTradeRecord(t Trade) TradeRecord {
	return TradeRecord{
		Action:    string(t.Action),
		Symbol:    t.Symbol,
		PresetID:  t.PresetID,
		Price:     t.Price,
		Units:     t.Units,
		Timestamp: t.Time.Unix(),
		Reason:    t.Reason,
		Pnl:       t.Pnl,
	}
}
