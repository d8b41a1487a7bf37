package models

// Side is the direction of an open position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Action is the kind of trade emitted by a lifecycle transition.
type Action string

const (
	ActionBuy       Action = "BUY"
	ActionSell      Action = "SELL"
	ActionSellShort Action = "SELL_SHORT"
	ActionCover     Action = "COVER"
)

// EntryAction returns the trade action that opens a position on the given side.
func EntryAction(side Side) Action {
	if side == SideShort {
		return ActionSellShort
	}
	return ActionBuy
}

// ExitAction returns the trade action that closes a position on the given side.
// It is derived from the side rather than tracked independently so the two can
// never disagree.
func ExitAction(side Side) Action {
	if side == SideShort {
		return ActionCover
	}
	return ActionSell
}

// IsExit reports whether the action realizes P&L.
func (a Action) IsExit() bool {
	return a == ActionSell || a == ActionCover
}

// InstrumentType distinguishes plain equity positions from the option-style
// sub-mode where targets and stops are expressed in premium points.
type InstrumentType string

const (
	InstrumentSpot      InstrumentType = "SPOT"
	InstrumentPutOption InstrumentType = "PUT_OPTION"
)
