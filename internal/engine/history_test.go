package engine

import (
	"fmt"
	"testing"
	"time"

	"intraday-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_AppendTrims(t *testing.T) {
	store := NewHistoryStore()
	base := time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC)

	for i := 0; i < maxHistoryPoints+30; i++ {
		store.Append("INFY.NS", models.PricePoint{
			Time:  base.Add(time.Duration(i) * time.Minute),
			Price: 100 + float64(i),
		})
	}

	series := store.Series("INFY.NS")
	require.Len(t, series, maxHistoryPoints)
	// The oldest 30 points were dropped.
	assert.Equal(t, 130.0, series[0].Price)

	latest, ok := store.LatestPrice("INFY.NS")
	require.True(t, ok)
	assert.Equal(t, 100.0+float64(maxHistoryPoints+29), latest)
}

func TestHistoryStore_LatestPriceUnknownSymbol(t *testing.T) {
	store := NewHistoryStore()
	_, ok := store.LatestPrice("MISSING.NS")
	assert.False(t, ok)
}

func TestHistoryStore_ExportRestoreRoundTrip(t *testing.T) {
	store := NewHistoryStore()
	at := time.Date(2025, 4, 7, 9, 15, 0, 0, time.UTC)
	store.Append("A.NS", models.PricePoint{Time: at, Price: 100})
	store.Append("B.NS", models.PricePoint{Time: at, Price: 200})

	exported := store.Export()

	restored := NewHistoryStore()
	restored.Restore(exported)
	assert.Equal(t, []string{"A.NS", "B.NS"}, restored.Symbols())
	assert.Equal(t, store.Series("A.NS"), restored.Series("A.NS"))
}

func TestHistoryStore_RestoreDropsUnusablePoints(t *testing.T) {
	store := NewHistoryStore()
	at := time.Date(2025, 4, 7, 9, 15, 0, 0, time.UTC)

	store.Restore(map[string][]models.PricePoint{
		"A.NS": {
			{Time: at, Price: 100},
			{Time: at.Add(time.Minute), Price: 0},
			{Time: time.Time{}, Price: 101},
		},
		"B.NS": {
			{Time: time.Time{}, Price: 0},
		},
	})

	assert.Len(t, store.Series("A.NS"), 1)
	assert.Empty(t, store.Series("B.NS"))
	assert.Equal(t, []string{"A.NS"}, store.Symbols())
}

func TestHistoryStore_Reset(t *testing.T) {
	store := NewHistoryStore()
	store.Append("A.NS", models.PricePoint{Time: time.Now(), Price: 100})
	store.Reset()
	assert.Empty(t, store.Symbols())
}

func TestHistoryStore_ChangePercentOverMinutes(t *testing.T) {
	store := NewHistoryStore()
	base := time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC)
	prices := []float64{100, 101, 102, 103, 104, 105}
	for i, price := range prices {
		store.Append("A.NS", models.PricePoint{Time: base.Add(time.Duration(i) * time.Minute), Price: price})
	}

	tests := []struct {
		minutes int
		want    float64
	}{
		{1, 105.0/104*100 - 100},
		{3, 105.0/102*100 - 100},
		{5, 5.0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dmin", tt.minutes), func(t *testing.T) {
			assert.InDelta(t, tt.want, store.ChangePercentOverMinutes("A.NS", tt.minutes), 0.0001)
		})
	}

	// Window older than the whole series.
	assert.Zero(t, store.ChangePercentOverMinutes("A.NS", 30))
	// Unknown or too-short series.
	assert.Zero(t, store.ChangePercentOverMinutes("MISSING.NS", 3))
}
