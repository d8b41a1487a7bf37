package strategy

import "intraday-trade-bot-go/internal/models"

// Ledger is an append-only trade list. Appending an entry whose composite key
// (action, symbol, time, price, units) was already recorded is a no-op, which
// makes replayed transitions idempotent.
type Ledger struct {
	trades []models.Trade
	seen   map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Append records the trade unless it is a duplicate. Reports whether the
// trade was actually added.
func (l *Ledger) Append(t models.Trade) bool {
	key := t.DedupKey()
	if _, dup := l.seen[key]; dup {
		return false
	}
	l.seen[key] = struct{}{}
	l.trades = append(l.trades, t)
	return true
}

// Trades returns the recorded trades in emission order. The returned slice is
// shared; callers must not mutate it.
func (l *Ledger) Trades() []models.Trade {
	return l.trades
}

func (l *Ledger) Len() int {
	return len(l.trades)
}

// RealizedPnl sums the P&L of every exit trade accepted by keep (nil keeps all).
func (l *Ledger) RealizedPnl(keep func(models.Trade) bool) float64 {
	var total float64
	for _, trade := range l.trades {
		if !trade.Action.IsExit() {
			continue
		}
		if keep != nil && !keep(trade) {
			continue
		}
		total += trade.Pnl
	}
	return total
}
