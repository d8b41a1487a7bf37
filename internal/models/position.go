package models

import "time"

// Position is one open simulated position. At most one exists per symbol.
// RemainingUnits only ever decreases; the side never changes after entry.
type Position struct {
	Symbol              string         `json:"symbol"`
	PresetID            string         `json:"presetId"`
	Side                Side           `json:"side"`
	EntryPrice          float64        `json:"entryPrice"`
	Units               int            `json:"units"`
	RemainingUnits      int            `json:"remainingUnits"`
	PartialBooked       bool           `json:"partialBooked"`
	MaxFavorablePercent float64        `json:"maxFavorablePercent"`
	EntryTime           time.Time      `json:"entryTime"`
	Instrument          InstrumentType `json:"instrumentType"`

	// Option-style sub-mode only.
	OptionEntryPremium     float64 `json:"optionEntryPremium,omitempty"`
	PremiumMovePerUnderPct float64 `json:"premiumMovePerUnderlyingPercent,omitempty"`
}

// FavorablePercent is the percent move from entry in the position's favor:
// positive when the position is winning, for either side.
func (p *Position) FavorablePercent(currentPrice float64) float64 {
	move := PercentChange(p.EntryPrice, currentPrice)
	if p.Side == SideShort {
		return -move
	}
	return move
}

// UnrealizedPnl marks the remaining units to market against currentPrice.
func (p *Position) UnrealizedPnl(currentPrice float64) float64 {
	units := float64(p.RemainingUnits)
	if p.Side == SideShort {
		return (p.EntryPrice - currentPrice) * units
	}
	return (currentPrice - p.EntryPrice) * units
}

// PutPremium models the option premium implied by the underlying's move for
// the option-style sub-mode. Returns ok=false when the position carries no
// usable premium metadata. The premium is floored at 0.1 points.
func (p *Position) PutPremium(currentUnderlying float64) (float64, bool) {
	if p.EntryPrice <= 0 || p.OptionEntryPremium <= 0 {
		return 0, false
	}
	movePerPct := p.PremiumMovePerUnderPct
	if movePerPct == 0 {
		movePerPct = 1
	}
	underlyingMovePct := (p.EntryPrice - currentUnderlying) / p.EntryPrice * 100
	premium := p.OptionEntryPremium + underlyingMovePct*movePerPct
	if premium < 0.1 {
		premium = 0.1
	}
	return premium, true
}
