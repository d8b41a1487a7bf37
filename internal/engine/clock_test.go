package engine

import (
	"testing"
	"time"

	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"

	"github.com/stretchr/testify/assert"
)

func sessionConfig() strategy.Config {
	return strategy.Config{
		MarketOpenTime:      "09:00",
		MarketCloseTime:     "15:00",
		SquareOffTime:       "14:50",
		WarmupBeforeOpenMin: 30,
		WeekdaysOnly:        true,
	}
}

// istTime builds a timestamp at the given wall-clock time in the trading zone.
func istTime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, models.MarketLocation())
}

func TestResolvePhase(t *testing.T) {
	cfg := sessionConfig()
	monday := func(hour, min int) time.Time { return istTime(2025, 4, 7, hour, min) }

	tests := []struct {
		name string
		at   time.Time
		want Phase
	}{
		{"early morning", monday(7, 0), PhasePreOpen},
		{"warmup start", monday(8, 30), PhaseWarmup},
		{"just before open", monday(8, 59), PhaseWarmup},
		{"open", monday(9, 0), PhaseOpen},
		{"midday", monday(12, 0), PhaseOpen},
		{"square-off start", monday(14, 50), PhaseSquareOff},
		{"close", monday(15, 0), PhaseClosed},
		{"evening", monday(18, 0), PhaseClosed},
		{"saturday midday", istTime(2025, 4, 5, 12, 0), PhaseClosed},
		{"sunday midday", istTime(2025, 4, 6, 12, 0), PhaseClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePhase(tt.at, cfg))
		})
	}
}

func TestResolvePhase_WeekendTradingEnabled(t *testing.T) {
	cfg := sessionConfig()
	cfg.WeekdaysOnly = false
	assert.Equal(t, PhaseOpen, ResolvePhase(istTime(2025, 4, 5, 12, 0), cfg))
}

func TestInPostCloseWindow(t *testing.T) {
	cfg := sessionConfig()
	assert.False(t, inPostCloseWindow(istTime(2025, 4, 7, 15, 30), cfg))
	assert.True(t, inPostCloseWindow(istTime(2025, 4, 7, 16, 0), cfg))
	assert.True(t, inPostCloseWindow(istTime(2025, 4, 7, 20, 0), cfg))
}

func TestPreviousMarketDate(t *testing.T) {
	// 2025-04-07 is a Monday; the previous market day is Friday the 4th.
	assert.Equal(t, "2025-04-04", PreviousMarketDate(istTime(2025, 4, 7, 10, 0)))
	// Midweek simply steps back one day.
	assert.Equal(t, "2025-04-08", PreviousMarketDate(istTime(2025, 4, 9, 10, 0)))
}
