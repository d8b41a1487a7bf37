package engine

import (
	"time"

	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"
)

// Phase is the market phase a timestamp falls into.
type Phase string

const (
	PhasePreOpen   Phase = "pre-open"
	PhaseWarmup    Phase = "warmup"
	PhaseOpen      Phase = "open"
	PhaseSquareOff Phase = "square-off"
	PhaseClosed    Phase = "closed"
)

// ResolvePhase maps a timestamp to its market phase using the session times
// from cfg. All boundaries are minutes-of-day in the trading time zone.
func ResolvePhase(now time.Time, cfg strategy.Config) Phase {
	local := now.In(models.MarketLocation())

	if cfg.WeekdaysOnly {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return PhaseClosed
		}
	}

	minutesOfDay := local.Hour()*60 + local.Minute()
	openMin := parseClockMinutes(cfg.MarketOpenTime)
	closeMin := parseClockMinutes(cfg.MarketCloseTime)
	squareOffMin := parseClockMinutes(cfg.SquareOffTime)

	warmupStart := openMin - cfg.WarmupBeforeOpenMin
	if warmupStart < 0 {
		warmupStart = 0
	}

	switch {
	case minutesOfDay < warmupStart:
		return PhasePreOpen
	case minutesOfDay < openMin:
		return PhaseWarmup
	case minutesOfDay >= closeMin:
		return PhaseClosed
	case minutesOfDay >= squareOffMin:
		return PhaseSquareOff
	default:
		return PhaseOpen
	}
}

// parseClockMinutes converts "HH:MM" to minutes of day, 0 on malformed input.
func parseClockMinutes(text string) int {
	t, err := time.Parse("15:04", text)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}

// inPostCloseWindow reports whether now is at least an hour past market close,
// the window in which the adaptive optimizer is allowed to run.
func inPostCloseWindow(now time.Time, cfg strategy.Config) bool {
	local := now.In(models.MarketLocation())
	minutesOfDay := local.Hour()*60 + local.Minute()
	return minutesOfDay >= parseClockMinutes(cfg.MarketCloseTime)+60
}

// PreviousMarketDate returns the most recent weekday date before base,
// formatted as a trading-day date string.
func PreviousMarketDate(base time.Time) string {
	day := base.In(models.MarketLocation()).AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return models.MarketDate(day)
}
