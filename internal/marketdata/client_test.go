package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestClient creates a test server and a Client configured to use it.
func setupTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	c := &Client{
		client:        resty.New().SetBaseURL(server.URL),
		screenerURL:   server.URL + "/screener",
		screenerCount: 250,
		logger:        zap.NewNop(),
		limiter:       rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}
	return c, server
}

func chartJSON(price, prevClose float64, quoteTime int64) string {
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"meta": {
					"regularMarketPrice": %g,
					"regularMarketPreviousClose": %g,
					"regularMarketTime": %d
				},
				"timestamp": [],
				"indicators": {"quote": [{"close": []}]}
			}]
		}
	}`, price, prevClose, quoteTime)
}

func TestQuotes(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/RELIANCE.NS", r.URL.Path)
			assert.Equal(t, "1d", r.URL.Query().Get("interval"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(chartJSON(2950.5, 2900, 1743999000)))
		})
		c, server := setupTestClient(handler)
		defer server.Close()

		// Act
		quotes, err := c.Quotes(context.Background(), []string{"RELIANCE.NS"})

		// Assert
		require.NoError(t, err)
		quote, ok := quotes["RELIANCE.NS"]
		require.True(t, ok)
		assert.Equal(t, 2950.5, quote.Price)
		assert.Equal(t, 2900.0, quote.PrevClose)
		assert.InDelta(t, 1.7414, quote.ChangePercent, 0.001)
		assert.Equal(t, int64(1743999000), quote.QuoteTime.Unix())
	})

	t.Run("FailedSymbolIsSkipped", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/GOOD.NS" {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(chartJSON(100, 99, 1743999000)))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		})
		c, server := setupTestClient(handler)
		defer server.Close()

		// Act
		quotes, err := c.Quotes(context.Background(), []string{"GOOD.NS", "MISSING.NS"})

		// Assert
		require.NoError(t, err)
		assert.Len(t, quotes, 1)
		assert.Contains(t, quotes, "GOOD.NS")
	})
}

func TestMinuteHistory(t *testing.T) {
	// Arrange: duplicate timestamp and a null close mixed into the series.
	mockResponse := `{
		"chart": {
			"result": [{
				"meta": {},
				"timestamp": [1743996600, 1743996660, 1743996660, 1743996720, 1743996780],
				"indicators": {"quote": [{
					"close": [100.0, 100.5, 100.5, null, 101.2]
				}]}
			}]
		}
	}`
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mockResponse))
	})
	c, server := setupTestClient(handler)
	defer server.Close()

	// Act
	points, err := c.MinuteHistory(context.Background(), "INFY.NS", "2025-04-07")

	// Assert
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 100.0, points[0].Price)
	assert.Equal(t, 100.5, points[1].Price)
	assert.Equal(t, 101.2, points[2].Price)
}

func TestMinuteHistory_InvalidDate(t *testing.T) {
	c, server := setupTestClient(http.NotFoundHandler())
	defer server.Close()

	_, err := c.MinuteHistory(context.Background(), "INFY.NS", "07-04-2025")
	assert.Error(t, err)
}

func TestDailyHistory(t *testing.T) {
	mockResponse := `{
		"chart": {
			"result": [{
				"meta": {},
				"timestamp": [1743397800, 1743484200],
				"indicators": {"quote": [{
					"open":   [100.0, 102.0],
					"high":   [103.0, 104.5],
					"low":    [99.0, 101.0],
					"close":  [102.0, 104.0],
					"volume": [120000, 150000]
				}]}
			}]
		}
	}`
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mockResponse))
	})
	c, server := setupTestClient(handler)
	defer server.Close()

	candles, err := c.DailyHistory(context.Background(), "INFY.NS", "2025-04-07")

	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 104.0, candles[1].Close)
	assert.Equal(t, 150000.0, candles[1].Volume)
	assert.NotEmpty(t, candles[1].Date)
}

func TestUniverseSymbols(t *testing.T) {
	t.Run("MergesScreens", func(t *testing.T) {
		// Arrange: every screen returns the same five NSE symbols plus noise.
		mockResponse := `{
			"finance": {
				"result": [{
					"quotes": [
						{"symbol": "AAA.NS"}, {"symbol": "BBB.NS"}, {"symbol": "CCC.NS"},
						{"symbol": "DDD.NS"}, {"symbol": "EEE.BO"}, {"symbol": "AAPL"}
					]
				}]
			}
		}`
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/screener", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(mockResponse))
		})
		c, server := setupTestClient(handler)
		defer server.Close()

		// Act
		symbols, source, err := c.UniverseSymbols(context.Background())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "yahoo-screener", source)
		assert.Len(t, symbols, 5)
		assert.NotContains(t, symbols, "AAPL")
	})

	t.Run("FallbackWhenScreenersFail", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		c, server := setupTestClient(handler)
		defer server.Close()

		symbols, source, err := c.UniverseSymbols(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "fallback-static", source)
		assert.Equal(t, FallbackSymbols, symbols)
	})
}

func TestDoRequest_RetriesServerErrors(t *testing.T) {
	// Arrange: two 500s, then success.
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartJSON(100, 99, 1743999000)))
	})
	c, server := setupTestClient(handler)
	defer server.Close()

	// Act
	quotes, err := c.Quotes(context.Background(), []string{"INFY.NS"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, quotes, "INFY.NS")
}
