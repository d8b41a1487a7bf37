package strategy

import (
	"testing"
	"time"

	"intraday-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putConfig() Config {
	return Config{
		TotalCapital:           10000,
		TopN:                   5,
		OptionMode:             true,
		SupertrendFactor:       3,
		SupertrendPeriod:       10,
		RSIPeriod:              14,
		EMAFastPeriod:          20,
		EMASlowPeriod:          50,
		OptionPremium:          5,
		TargetPoints:           2,
		StopLossPoints:         1,
		PremiumMovePerUnderPct: 1,
	}
}

func declineSeries(n int) []models.PricePoint {
	base := time.Date(2025, 4, 7, 9, 30, 0, 0, time.UTC)
	points := make([]models.PricePoint, n)
	for i := range points {
		points[i] = models.PricePoint{
			Time:  base.Add(time.Duration(i) * time.Minute),
			Price: 500 - float64(i)*2,
		}
	}
	return points
}

func TestEvaluatePutSignal_BearishOnSustainedDecline(t *testing.T) {
	signal := EvaluatePutSignal(declineSeries(90), putConfig())

	assert.True(t, signal.Bearish)
	assert.Equal(t, -1, signal.Direction)
	assert.Less(t, signal.RSI, 50.0)
	assert.Less(t, signal.EMAFast, signal.EMASlow)
}

func TestEvaluatePutSignal_QuietWithoutEnoughHistory(t *testing.T) {
	signal := EvaluatePutSignal(declineSeries(59), putConfig())
	assert.False(t, signal.Bearish)
}

func TestEvaluatePutSignal_NotBearishOnRise(t *testing.T) {
	base := time.Date(2025, 4, 7, 9, 30, 0, 0, time.UTC)
	points := make([]models.PricePoint, 90)
	for i := range points {
		points[i] = models.PricePoint{
			Time:  base.Add(time.Duration(i) * time.Minute),
			Price: 500 + float64(i)*2,
		}
	}

	signal := EvaluatePutSignal(points, putConfig())
	assert.False(t, signal.Bearish)
	assert.Equal(t, 1, signal.Direction)
}

func TestEvaluateTick_PutEntryFromSignal(t *testing.T) {
	cfg := putConfig()
	history := declineSeries(90)

	pos, trade := EvaluateTick("NIFTY", history, nil, cfg)

	require.NotNil(t, pos)
	require.NotNil(t, trade)
	assert.Equal(t, models.InstrumentPutOption, pos.Instrument)
	assert.Equal(t, models.ActionBuy, trade.Action)
	assert.Equal(t, 5.0, pos.OptionEntryPremium)
	// Slot 2000 at a 5-point premium buys 400 units.
	assert.Equal(t, 400, pos.Units)
	assert.Equal(t, "PUT entry: Supertrend bearish + RSI<50 + EMA fast below slow", trade.Reason)
}
