package strategy

import (
	"math"

	"intraday-trade-bot-go/internal/models"
)

// HasUptrend reports whether the last lookback steps of points are mostly
// rising. "Mostly" is governed by strength in (0,1]: at least
// ceil(lookback*strength) of the consecutive-pair comparisons must be a
// strict rise. Fewer than lookback+1 points never signals.
func HasUptrend(points []models.PricePoint, lookback int, strength float64) bool {
	return countFavorableSteps(points, lookback, func(prev, cur float64) bool {
		return cur > prev
	}) >= requiredSteps(lookback, strength)
}

// HasDowntrend is the mirror of HasUptrend for falling prices.
func HasDowntrend(points []models.PricePoint, lookback int, strength float64) bool {
	return countFavorableSteps(points, lookback, func(prev, cur float64) bool {
		return cur < prev
	}) >= requiredSteps(lookback, strength)
}

func requiredSteps(lookback int, strength float64) int {
	required := int(math.Ceil(float64(lookback) * strength))
	if required < 1 {
		required = 1
	}
	return required
}

// countFavorableSteps returns -1 when there is not enough history, which can
// never satisfy a positive step requirement.
func countFavorableSteps(points []models.PricePoint, lookback int, favorable func(prev, cur float64) bool) int {
	if lookback <= 0 || len(points) < lookback+1 {
		return -1
	}
	recent := points[len(points)-lookback-1:]
	count := 0
	for i := 1; i < len(recent); i++ {
		if favorable(recent[i-1].Price, recent[i].Price) {
			count++
		}
	}
	return count
}
