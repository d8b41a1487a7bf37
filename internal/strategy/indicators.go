package strategy

import "math"

// EMA returns the exponential moving average of closes for the given period,
// seeded from the first close. ok=false when the inputs are unusable.
func EMA(closes []float64, period int) (float64, bool) {
	if len(closes) == 0 || period <= 1 {
		return 0, false
	}
	multiplier := 2.0 / float64(period+1)
	ema := closes[0]
	for _, close := range closes[1:] {
		ema = (close-ema)*multiplier + ema
	}
	return ema, true
}

// RSI is Wilder's relative strength index over closes.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change >= 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else if change < 0 {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// SupertrendDirection returns +1 while price holds above the Supertrend lower
// band and -1 once it breaks below the upper band. True range degrades to
// close-to-close moves because the store only keeps closes.
func SupertrendDirection(closes []float64, factor float64, period int) (int, bool) {
	if period <= 0 || len(closes) < period+2 {
		return 0, false
	}

	trs := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		trs[i] = math.Abs(closes[i] - closes[i-1])
	}

	seedEnd := period + 1
	if seedEnd > len(trs) {
		seedEnd = len(trs)
	}
	var seedSum float64
	for _, tr := range trs[1:seedEnd] {
		seedSum += tr
	}
	atr := seedSum / float64(seedEnd-1)

	finalUpper := closes[0] + factor*atr
	finalLower := closes[0] - factor*atr
	direction := 1

	for i := 1; i < len(closes); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)

		basicUpper := closes[i] + factor*atr
		basicLower := closes[i] - factor*atr

		if basicUpper < finalUpper || closes[i-1] > finalUpper {
			finalUpper = basicUpper
		}
		if basicLower > finalLower || closes[i-1] < finalLower {
			finalLower = basicLower
		}

		if closes[i] > finalUpper {
			direction = 1
		} else if closes[i] < finalLower {
			direction = -1
		}
	}

	return direction, true
}
