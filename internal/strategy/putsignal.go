package strategy

import "intraday-trade-bot-go/internal/models"

// PutSignal is the indicator readout behind an option-style bearish entry.
type PutSignal struct {
	Bearish   bool    `json:"isBearish"`
	RSI       float64 `json:"rsi"`
	EMAFast   float64 `json:"emaFast"`
	EMASlow   float64 `json:"emaSlow"`
	Direction int     `json:"direction"`
}

const putSignalMinPoints = 60

// EvaluatePutSignal checks the Supertrend/RSI/EMA confluence the option-style
// preset enters on: Supertrend bearish, RSI below 50 and price under a
// downward-stacked EMA pair. It stays quiet until an hour of history exists.
func EvaluatePutSignal(history []models.PricePoint, cfg Config) PutSignal {
	closes := make([]float64, 0, len(history))
	for _, point := range history {
		if point.Price > 0 {
			closes = append(closes, point.Price)
		}
	}
	if len(closes) < putSignalMinPoints {
		return PutSignal{}
	}

	rsiPeriod := atLeast(cfg.RSIPeriod, 2)
	emaFastPeriod := atLeast(cfg.EMAFastPeriod, 2)
	emaSlowPeriod := atLeast(cfg.EMASlowPeriod, 3)
	stFactor := cfg.SupertrendFactor
	if stFactor < 1 {
		stFactor = 3
	}
	stPeriod := atLeast(cfg.SupertrendPeriod, 2)

	rsi, rsiOK := RSI(closes, rsiPeriod)
	emaFast, fastOK := EMA(closes, emaFastPeriod)
	emaSlow, slowOK := EMA(closes, emaSlowPeriod)
	direction, dirOK := SupertrendDirection(closes, stFactor, stPeriod)
	close := closes[len(closes)-1]

	signal := PutSignal{RSI: rsi, EMAFast: emaFast, EMASlow: emaSlow, Direction: direction}
	signal.Bearish = dirOK && direction == -1 &&
		rsiOK && rsi < 50 &&
		fastOK && slowOK &&
		close < emaFast && emaFast < emaSlow
	return signal
}

func atLeast(value, min int) int {
	if value < min {
		return min
	}
	return value
}
