package engine

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"intraday-trade-bot-go/internal/models"

	"go.uber.org/zap"
)

const shortlistSize = 10

// ShortlistEntry scores one symbol's recent daily candles for a directional
// bias ahead of the open.
type ShortlistEntry struct {
	Symbol           string  `json:"symbol"`
	Score            float64 `json:"score"`
	LastClose        float64 `json:"lastClose"`
	DayChangePercent float64 `json:"dayChangePercent"`
	CloseStrength    float64 `json:"closeStrength"`
	RangePercent     float64 `json:"rangePercent"`
	VolumeSpike      float64 `json:"volumeSpike"`
	TrendDays        int     `json:"trendDays"`
}

// Shortlist carries the pre-open long and short candidate lists.
type Shortlist struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Long        []ShortlistEntry `json:"long"`
	Short       []ShortlistEntry `json:"short"`
}

// BuildShortlist fetches recent daily candles for the screener universe and
// ranks them into long and short watchlists. It is a pre-open convenience and
// never feeds the live selection directly.
func (r *TrialRunner) BuildShortlist(ctx context.Context, date string) (*Shortlist, error) {
	symbols, source, err := r.source.UniverseSymbols(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Shortlist universe resolved", zap.String("source", source), zap.Int("size", len(symbols)))

	var mu sync.Mutex
	var wg sync.WaitGroup
	var longSide, shortSide []ShortlistEntry

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			candles, err := r.source.DailyHistory(ctx, symbol, date)
			if err != nil {
				r.logger.Debug("Shortlist symbol skipped", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			long, short, ok := scoreCandles(symbol, candles)
			if !ok {
				return
			}
			mu.Lock()
			longSide = append(longSide, long)
			shortSide = append(shortSide, short)
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	return &Shortlist{
		GeneratedAt: time.Now(),
		Long:        topEntries(longSide),
		Short:       topEntries(shortSide),
	}, nil
}

// scoreCandles turns daily candles into one long-bias and one short-bias
// score for the same symbol. Close strength is where the last close sits
// inside the day's range, the volume spike compares the last session against
// the trailing average, and trend days count consecutive higher (or lower)
// closes.
func scoreCandles(symbol string, candles []models.Candle) (long ShortlistEntry, short ShortlistEntry, ok bool) {
	if len(candles) < 6 {
		return ShortlistEntry{}, ShortlistEntry{}, false
	}

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	if last.Close <= 0 || prev.Close <= 0 {
		return ShortlistEntry{}, ShortlistEntry{}, false
	}

	dayChange := models.PercentChange(prev.Close, last.Close)
	dayRange := last.High - last.Low

	closeStrength := 0.5
	if dayRange > 0 {
		closeStrength = (last.Close - last.Low) / dayRange
	}
	rangePercent := 0.0
	if last.Close > 0 {
		rangePercent = dayRange / last.Close * 100
	}

	volumeSpike := 1.0
	var volSum float64
	for _, candle := range candles[len(candles)-6 : len(candles)-1] {
		volSum += candle.Volume
	}
	avgVol := volSum / 5
	if avgVol > 0 {
		volumeSpike = last.Volume / avgVol
	}

	upDays, downDays := 0, 0
	for i := len(candles) - 1; i > 0; i-- {
		if candles[i].Close > candles[i-1].Close {
			upDays++
		} else {
			break
		}
	}
	for i := len(candles) - 1; i > 0; i-- {
		if candles[i].Close < candles[i-1].Close {
			downDays++
		} else {
			break
		}
	}

	longScore := closeStrength*40 +
		math.Max(dayChange, 0)*8 +
		rangePercent*2 +
		math.Min(volumeSpike, 3)*10 +
		float64(upDays)*8
	shortScore := (1-closeStrength)*40 +
		math.Max(-dayChange, 0)*8 +
		rangePercent*2 +
		math.Min(volumeSpike, 3)*10 +
		float64(downDays)*8

	long = ShortlistEntry{
		Symbol:           symbol,
		Score:            models.Round2(longScore),
		LastClose:        last.Close,
		DayChangePercent: models.Round2(dayChange),
		CloseStrength:    models.Round2(closeStrength),
		RangePercent:     models.Round2(rangePercent),
		VolumeSpike:      models.Round2(volumeSpike),
		TrendDays:        upDays,
	}
	short = long
	short.Score = models.Round2(shortScore)
	short.TrendDays = downDays
	return long, short, true
}

func topEntries(entries []ShortlistEntry) []ShortlistEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	if len(entries) > shortlistSize {
		entries = entries[:shortlistSize]
	}
	return entries
}
