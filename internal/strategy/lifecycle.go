package strategy

import (
	"fmt"
	"time"

	"intraday-trade-bot-go/internal/models"
)

// EvaluateTick advances one symbol by a single price observation. history must
// end with the observation being evaluated; pos is the currently open position
// for the symbol, or nil when flat. It returns the resulting open position
// (nil when flat or fully closed) and the trade emitted by the transition, if
// any. At most one transition fires per tick. Live execution and historical
// replay both call this function and nothing else, so the two paths cannot
// drift apart.
func EvaluateTick(symbol string, history []models.PricePoint, pos *models.Position, cfg Config) (*models.Position, *models.Trade) {
	if len(history) == 0 {
		return pos, nil
	}
	point := history[len(history)-1]

	if pos == nil {
		if cfg.OptionMode {
			return evaluatePutEntry(symbol, history, cfg, point)
		}
		return evaluateTrendEntry(symbol, history, cfg, point)
	}

	if pos.Instrument == models.InstrumentPutOption {
		return evaluatePutExit(pos, cfg, point)
	}
	return evaluateOpenPosition(pos, cfg, point)
}

// ForceExit closes every remaining unit of pos at price, regardless of state.
// Used for the daily-loss cutoff, scheduled square-off and manual closes.
func ForceExit(pos *models.Position, price float64, now time.Time, reason string) (*models.Position, *models.Trade) {
	if pos == nil {
		return nil, nil
	}
	return exitTrade(pos, price, now, reason, pos.RemainingUnits)
}

func evaluateTrendEntry(symbol string, history []models.PricePoint, cfg Config, point models.PricePoint) (*models.Position, *models.Trade) {
	var side models.Side
	var reason string

	switch {
	case HasUptrend(history, cfg.BuyContinuousRiseMinutes, cfg.TrendStrengthThreshold):
		side = models.SideLong
		reason = fmt.Sprintf("Continuous uptrend for %d+ minutes", cfg.BuyContinuousRiseMinutes)
	case cfg.AllowShortEntries && HasDowntrend(history, cfg.ShortContinuousFallMinutes, cfg.TrendStrengthThreshold):
		side = models.SideShort
		reason = fmt.Sprintf("Continuous downtrend for %d+ minutes", cfg.ShortContinuousFallMinutes)
	default:
		return nil, nil
	}

	units := cfg.CalculateUnits(point.Price)
	if units <= 0 {
		// Slot too small for a single unit: skip silently, not an error.
		return nil, nil
	}

	pos := &models.Position{
		Symbol:         symbol,
		Side:           side,
		EntryPrice:     point.Price,
		Units:          units,
		RemainingUnits: units,
		EntryTime:      point.Time,
		Instrument:     models.InstrumentSpot,
	}
	trade := &models.Trade{
		Action: models.EntryAction(side),
		Symbol: symbol,
		Price:  models.Round2(point.Price),
		Units:  units,
		Time:   point.Time,
		Reason: reason,
	}
	return pos, trade
}

func evaluatePutEntry(symbol string, history []models.PricePoint, cfg Config, point models.PricePoint) (*models.Position, *models.Trade) {
	if !EvaluatePutSignal(history, cfg).Bearish {
		return nil, nil
	}

	premium := cfg.OptionPremium
	if premium < 0.1 {
		premium = 5
	}
	units := int(cfg.CapitalPerSlot() / premium)
	if units < 1 {
		units = 1
	}
	movePerPct := cfg.PremiumMovePerUnderPct
	if movePerPct == 0 {
		movePerPct = 1
	}

	pos := &models.Position{
		Symbol:                 symbol,
		Side:                   models.SideLong,
		EntryPrice:             point.Price,
		Units:                  units,
		RemainingUnits:         units,
		EntryTime:              point.Time,
		Instrument:             models.InstrumentPutOption,
		OptionEntryPremium:     premium,
		PremiumMovePerUnderPct: movePerPct,
	}
	trade := &models.Trade{
		Action: models.ActionBuy,
		Symbol: symbol,
		Price:  models.Round2(premium),
		Units:  units,
		Time:   point.Time,
		Reason: "PUT entry: Supertrend bearish + RSI<50 + EMA fast below slow",
	}
	return pos, trade
}

func evaluateOpenPosition(pos *models.Position, cfg Config, point models.PricePoint) (*models.Position, *models.Trade) {
	price, now := point.Price, point.Time
	favorable := pos.FavorablePercent(price)
	if favorable > pos.MaxFavorablePercent {
		pos.MaxFavorablePercent = favorable
	}

	if !pos.PartialBooked {
		elapsed := now.Sub(pos.EntryTime).Minutes()
		if cfg.TimeExitMinutes > 0 && elapsed >= float64(cfg.TimeExitMinutes) && favorable < cfg.FirstProfitTargetPercent {
			return exitTrade(pos, price, now, fmt.Sprintf("Time exit (%d min) before target", cfg.TimeExitMinutes), pos.RemainingUnits)
		}

		if favorable <= -cfg.PerStockStopLossPercent {
			return exitTrade(pos, price, now, fmt.Sprintf("Per-stock stop loss hit (%g%%)", cfg.PerStockStopLossPercent), pos.RemainingUnits)
		}

		if favorable >= cfg.FirstProfitTargetPercent {
			unitsToExit := pos.Units * int(cfg.FirstProfitExitPercent) / 100
			if unitsToExit < 1 {
				unitsToExit = 1
			}
			reason := fmt.Sprintf("First target hit (%g%%), booked %g%%", cfg.FirstProfitTargetPercent, cfg.FirstProfitExitPercent)
			next, trade := exitTrade(pos, price, now, reason, unitsToExit)
			if next != nil {
				next.PartialBooked = true
			}
			return next, trade
		}

		return pos, nil
	}

	if cfg.MoveStopToEntryAfterFirst && favorable <= 0 {
		return exitTrade(pos, price, now, "No-loss mode stop at entry after first booking", pos.RemainingUnits)
	}

	if pos.MaxFavorablePercent > 0 && favorable <= pos.MaxFavorablePercent-cfg.TrailingStopPercent {
		return exitTrade(pos, price, now, fmt.Sprintf("Trailing stop hit (%g%%)", cfg.TrailingStopPercent), pos.RemainingUnits)
	}

	if favorable >= cfg.RemainderHardTargetPercent {
		return exitTrade(pos, price, now, fmt.Sprintf("Final target hit (%g%%)", cfg.RemainderHardTargetPercent), pos.RemainingUnits)
	}

	return pos, nil
}

func evaluatePutExit(pos *models.Position, cfg Config, point models.PricePoint) (*models.Position, *models.Trade) {
	targetPoints := cfg.TargetPoints
	if targetPoints < 0.1 {
		targetPoints = 2
	}
	stopPoints := cfg.StopLossPoints
	if stopPoints < 0.1 {
		stopPoints = 1
	}

	premium, ok := pos.PutPremium(point.Price)
	if !ok {
		return pos, nil
	}
	premiumPnl := premium - pos.OptionEntryPremium

	if premiumPnl >= targetPoints {
		return exitTrade(pos, point.Price, point.Time, fmt.Sprintf("PUT target hit (+%.2f points)", targetPoints), pos.RemainingUnits)
	}
	if premiumPnl <= -stopPoints {
		return exitTrade(pos, point.Price, point.Time, fmt.Sprintf("PUT stop loss hit (-%.2f points)", stopPoints), pos.RemainingUnits)
	}
	return pos, nil
}

// exitTrade realizes units of pos at the given underlying price. For the
// option-style sub-mode the trade is priced in premium terms. Returns the
// surviving position (nil when fully closed) and the exit trade.
func exitTrade(pos *models.Position, price float64, now time.Time, reason string, units int) (*models.Position, *models.Trade) {
	if pos == nil {
		return nil, nil
	}
	if units > pos.RemainingUnits {
		units = pos.RemainingUnits
	}
	if units <= 0 {
		return pos, nil
	}

	exitPrice := price
	entryRef := pos.EntryPrice
	if pos.Instrument == models.InstrumentPutOption {
		if premium, ok := pos.PutPremium(price); ok {
			exitPrice = premium
			entryRef = pos.OptionEntryPremium
		}
	}

	pnl := (exitPrice - entryRef) * float64(units)
	if pos.Side == models.SideShort {
		pnl = -pnl
	}

	pos.RemainingUnits -= units
	trade := &models.Trade{
		Action:   models.ExitAction(pos.Side),
		Symbol:   pos.Symbol,
		PresetID: pos.PresetID,
		Price:    models.Round2(exitPrice),
		Units:    units,
		Time:     now,
		Reason:   reason,
		Pnl:      models.Round2(pnl),
	}

	if pos.RemainingUnits <= 0 {
		return nil, trade
	}
	return pos, trade
}
