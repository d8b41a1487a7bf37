package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"intraday-trade-bot-go/internal/config"
	"intraday-trade-bot-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultChartBaseURL    = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultScreenerBaseURL = "https://query1.finance.yahoo.com/v1/finance/screener/predefined/saved"
)

// FallbackSymbols is the static NSE universe used when the screener is
// unreachable or returns too few symbols.
var FallbackSymbols = []string{
	"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "ICICIBANK.NS", "SBIN.NS",
	"INFY.NS", "ITC.NS", "LT.NS", "AXISBANK.NS", "KOTAKBANK.NS",
	"BHARTIARTL.NS", "MARUTI.NS", "BAJFINANCE.NS", "ASIANPAINT.NS", "SUNPHARMA.NS",
	"TITAN.NS", "WIPRO.NS", "HCLTECH.NS", "ONGC.NS", "NTPC.NS",
}

// Client fetches quotes, historical series and the screener universe from the
// Yahoo chart endpoints. It implements Source.
type Client struct {
	client        *resty.Client
	screenerURL   string
	screenerCount int
	logger        *zap.Logger
	limiter       *rate.Limiter
}

var _ Source = (*Client)(nil)

// NewClient creates a market-data client from configuration.
func NewClient(cfg *config.MarketData, logger *zap.Logger) *Client {
	chartURL := cfg.ChartBaseURL
	if chartURL == "" {
		chartURL = defaultChartBaseURL
	}
	screenerURL := cfg.ScreenerBaseURL
	if screenerURL == "" {
		screenerURL = defaultScreenerBaseURL
	}
	screenerCount := cfg.ScreenerCount
	if screenerCount <= 0 {
		screenerCount = 250
	}

	return &Client{
		client:        resty.New().SetBaseURL(chartURL),
		screenerURL:   screenerURL,
		screenerCount: screenerCount,
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

type chartMeta struct {
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
	PreviousClose              *float64 `json:"previousClose"`
	ChartPreviousClose         *float64 `json:"chartPreviousClose"`
	RegularMarketTime          *int64   `json:"regularMarketTime"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta       chartMeta `json:"meta"`
			Timestamp  []int64   `json:"timestamp"`
			Indicators struct {
				Quote []chartQuote `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// doRequest executes with rate limiting and exponential-backoff retries on
// throttling and server errors.
func (c *Client) doRequest(ctx context.Context, method, path string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = req.SetContext(ctx).Execute(method, path)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, parseErr := strconv.Atoi(resp.Header().Get("Retry-After")); parseErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else {
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Market data request failed, retrying...",
			zap.String("path", path),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// epochRangeForDate returns the [start, end) unix-second bounds of one
// trading-zone calendar day.
func epochRangeForDate(date string) (int64, int64, error) {
	start, err := time.ParseInLocation("2006-01-02", date, models.MarketLocation())
	if err != nil {
		return 0, 0, fmt.Errorf("invalid date %q, use YYYY-MM-DD: %w", date, err)
	}
	return start.Unix(), start.Add(24 * time.Hour).Unix(), nil
}

// Quotes fetches the latest price and previous close per symbol. Symbols that
// fail or return unusable data are simply absent from the result.
func (c *Client) Quotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	quotes := make(map[string]models.Quote, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range uniqueSymbols(symbols) {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			quote, err := c.fetchQuote(ctx, symbol)
			if err != nil {
				c.logger.Debug("Quote fetch skipped", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			mu.Lock()
			quotes[symbol] = quote
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return quotes, nil
}

func (c *Client) fetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	var payload chartResponse
	req := c.client.R().
		SetResult(&payload).
		SetQueryParams(map[string]string{
			"interval":       "1d",
			"range":          "5d",
			"includePrePost": "false",
			"events":         "history",
		})

	if _, err := c.doRequest(ctx, http.MethodGet, "/"+url.PathEscape(symbol), req); err != nil {
		return models.Quote{}, fmt.Errorf("quote fetch failed for %s: %w", symbol, err)
	}
	if len(payload.Chart.Result) == 0 {
		return models.Quote{}, fmt.Errorf("empty chart result for %s", symbol)
	}

	result := payload.Chart.Result[0]
	closes := validCloses(result.Indicators.Quote)

	price := 0.0
	if result.Meta.RegularMarketPrice != nil {
		price = *result.Meta.RegularMarketPrice
	} else if len(closes) > 0 {
		price = closes[len(closes)-1]
	}

	prevClose := 0.0
	switch {
	case result.Meta.RegularMarketPreviousClose != nil:
		prevClose = *result.Meta.RegularMarketPreviousClose
	case result.Meta.PreviousClose != nil:
		prevClose = *result.Meta.PreviousClose
	case result.Meta.ChartPreviousClose != nil:
		prevClose = *result.Meta.ChartPreviousClose
	case len(closes) > 1:
		prevClose = closes[len(closes)-2]
	}

	if price <= 0 || prevClose <= 0 {
		return models.Quote{}, fmt.Errorf("no usable price for %s", symbol)
	}

	quoteTime := time.Now()
	if result.Meta.RegularMarketTime != nil {
		quoteTime = time.Unix(*result.Meta.RegularMarketTime, 0)
	}

	return models.Quote{
		Symbol:        symbol,
		Price:         price,
		PrevClose:     prevClose,
		ChangePercent: models.PercentChange(prevClose, price),
		QuoteTime:     quoteTime,
	}, nil
}

// MinuteHistory fetches the 1-minute close series for one symbol on date.
// Duplicate timestamps are collapsed and non-positive closes dropped.
func (c *Client) MinuteHistory(ctx context.Context, symbol, date string) ([]models.PricePoint, error) {
	period1, period2, err := epochRangeForDate(date)
	if err != nil {
		return nil, err
	}

	var payload chartResponse
	req := c.client.R().
		SetResult(&payload).
		SetQueryParams(map[string]string{
			"period1":        strconv.FormatInt(period1, 10),
			"period2":        strconv.FormatInt(period2, 10),
			"interval":       "1m",
			"includePrePost": "false",
			"events":         "history",
		})

	if _, err := c.doRequest(ctx, http.MethodGet, "/"+url.PathEscape(symbol), req); err != nil {
		return nil, fmt.Errorf("minute history fetch failed for %s on %s: %w", symbol, date, err)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty minute history for %s on %s", symbol, date)
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote series for %s on %s", symbol, date)
	}
	closes := result.Indicators.Quote[0].Close

	points := make([]models.PricePoint, 0, len(result.Timestamp))
	var lastTS int64 = -1
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 || ts == lastTS {
			continue
		}
		points = append(points, models.PricePoint{Time: time.Unix(ts, 0), Price: *closes[i]})
		lastTS = ts
	}
	return points, nil
}

// DailyHistory fetches daily OHLCV candles ending on date, with 45 days of
// preceding context for scoring.
func (c *Client) DailyHistory(ctx context.Context, symbol, date string) ([]models.Candle, error) {
	period1, period2, err := epochRangeForDate(date)
	if err != nil {
		return nil, err
	}
	period1 -= 45 * 24 * 60 * 60

	var payload chartResponse
	req := c.client.R().
		SetResult(&payload).
		SetQueryParams(map[string]string{
			"period1":        strconv.FormatInt(period1, 10),
			"period2":        strconv.FormatInt(period2, 10),
			"interval":       "1d",
			"includePrePost": "false",
			"events":         "history",
		})

	if _, err := c.doRequest(ctx, http.MethodGet, "/"+url.PathEscape(symbol), req); err != nil {
		return nil, fmt.Errorf("daily history fetch failed for %s on %s: %w", symbol, date, err)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty daily history for %s on %s", symbol, date)
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote series for %s on %s", symbol, date)
	}
	quote := result.Indicators.Quote[0]

	candles := make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open := valueAt(quote.Open, i)
		high := valueAt(quote.High, i)
		low := valueAt(quote.Low, i)
		closePx := valueAt(quote.Close, i)
		if open == nil || high == nil || low == nil || closePx == nil {
			continue
		}

		volume := 0.0
		if v := valueAt(quote.Volume, i); v != nil {
			volume = *v
		}

		candles = append(candles, models.Candle{
			Date:   models.MarketDate(time.Unix(ts, 0)),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closePx,
			Volume: volume,
		})
	}
	return candles, nil
}

type screenerResponse struct {
	Finance struct {
		Result []struct {
			Quotes []struct {
				Symbol string `json:"symbol"`
			} `json:"quotes"`
		} `json:"result"`
	} `json:"finance"`
}

// UniverseSymbols merges the day-gainers, day-losers and most-actives
// screeners. When every screen fails or too few symbols come back, the static
// fallback list is returned instead; the second value names the source used.
func (c *Client) UniverseSymbols(ctx context.Context) ([]string, string, error) {
	screens := []string{"day_gainers", "day_losers", "most_actives"}
	var merged []string

	for _, screen := range screens {
		symbols, err := c.fetchScreen(ctx, screen)
		if err != nil {
			c.logger.Warn("Screener fetch failed", zap.String("screen", screen), zap.Error(err))
			continue
		}
		merged = append(merged, symbols...)
	}

	merged = uniqueSymbols(merged)
	if len(merged) >= 5 {
		return merged, "yahoo-screener", nil
	}
	return append([]string(nil), FallbackSymbols...), "fallback-static", nil
}

func (c *Client) fetchScreen(ctx context.Context, screenID string) ([]string, error) {
	var payload screenerResponse
	req := c.client.R().
		SetResult(&payload).
		SetQueryParams(map[string]string{
			"formatted": "true",
			"scrIds":    screenID,
			"count":     strconv.Itoa(c.screenerCount),
			"start":     "0",
		})

	if _, err := c.doRequest(ctx, http.MethodGet, c.screenerURL, req); err != nil {
		return nil, fmt.Errorf("screener fetch failed for %s: %w", screenID, err)
	}
	if len(payload.Finance.Result) == 0 {
		return nil, fmt.Errorf("empty screener result for %s", screenID)
	}

	var symbols []string
	for _, quote := range payload.Finance.Result[0].Quotes {
		if strings.HasSuffix(quote.Symbol, ".NS") || strings.HasSuffix(quote.Symbol, ".BO") {
			symbols = append(symbols, quote.Symbol)
		}
	}
	return symbols, nil
}

func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func validCloses(quotes []chartQuote) []float64 {
	if len(quotes) == 0 {
		return nil
	}
	var closes []float64
	for _, close := range quotes[0].Close {
		if close != nil && *close > 0 {
			closes = append(closes, *close)
		}
	}
	return closes
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}
