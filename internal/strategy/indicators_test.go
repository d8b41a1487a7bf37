package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func risingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

func fallingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start - float64(i)*step
	}
	return closes
}

func TestEMA(t *testing.T) {
	_, ok := EMA(nil, 20)
	assert.False(t, ok)

	_, ok = EMA([]float64{100}, 1)
	assert.False(t, ok)

	// A constant series converges to itself.
	ema, ok := EMA([]float64{100, 100, 100, 100}, 3)
	require.True(t, ok)
	assert.InDelta(t, 100.0, ema, 0.001)

	// A rising series keeps the fast EMA above the slow one.
	closes := risingCloses(60, 100, 0.5)
	fast, ok := EMA(closes, 5)
	require.True(t, ok)
	slow, ok := EMA(closes, 20)
	require.True(t, ok)
	assert.Greater(t, fast, slow)
}

func TestRSI(t *testing.T) {
	_, ok := RSI(risingCloses(10, 100, 1), 14)
	assert.False(t, ok)

	rsi, ok := RSI(risingCloses(30, 100, 1), 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)

	rsi, ok = RSI(fallingCloses(30, 100, 0.5), 14)
	require.True(t, ok)
	assert.Less(t, rsi, 50.0)
}

func TestSupertrendDirection(t *testing.T) {
	_, ok := SupertrendDirection(risingCloses(5, 100, 1), 3, 10)
	assert.False(t, ok)

	direction, ok := SupertrendDirection(risingCloses(40, 100, 1), 3, 10)
	require.True(t, ok)
	assert.Equal(t, 1, direction)

	direction, ok = SupertrendDirection(fallingCloses(40, 200, 2), 3, 10)
	require.True(t, ok)
	assert.Equal(t, -1, direction)
}
