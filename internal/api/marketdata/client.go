package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/Alias1177/Strategist/internal/platform/http"
	"github.com/Alias1177/Strategist/models"
)

// Client fetches OHLCV series from the Twelve Data API. It satisfies
// models.CandleClient: candles come back oldest-first with strictly
// increasing timestamps, or the call fails.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new market-data client.
type ClientOptions struct {
	APIKey          string
	BaseURL         string // defaults to the public endpoint
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// timeSeriesResponse is the provider's wire format; prices arrive as
// strings.
type timeSeriesResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values []struct {
		Datetime string  `json:"datetime"`
		Open     float64 `json:"open,string"`
		High     float64 `json:"high,string"`
		Low      float64 `json:"low,string"`
		Close    float64 `json:"close,string"`
		Volume   float64 `json:"volume,string,omitempty"`
	} `json:"values"`
	Status string `json:"status"`
}

// NewClient creates a market-data client.
func NewClient(opts ClientOptions) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		httpClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:         opts.RequestTimeout,
			RequestsPerSec:  opts.RequestsPerSec,
			MaxRetries:      opts.MaxRetries,
			MaxRetryTimeout: opts.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "marketdata").Logger(),
	}
}

// GetCandles fetches the most recent count candles for one instrument.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, count int) ([]models.Candle, error) {
	url := fmt.Sprintf(
		"%s/time_series?symbol=%s&interval=%s&outputsize=%d&apikey=%s",
		c.baseURL, symbol, timeframe, count, c.apiKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if strings.Contains(string(body), `"status":"error"`) {
		c.logger.Error().Str("response", string(body)).Msg("provider returned error status")
		return nil, fmt.Errorf("market data provider error: %s", string(body))
	}

	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(data.Values) == 0 {
		return nil, fmt.Errorf("empty candle series for %s %s", symbol, timeframe)
	}

	candles := make([]models.Candle, 0, len(data.Values))
	for _, v := range data.Values {
		ts, err := parseDatetime(v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("parsing candle timestamp: %w", err)
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      v.Open,
			High:      v.High,
			Low:       v.Low,
			Close:     v.Close,
			Volume:    v.Volume,
		})
	}

	// Provider sends newest first; the engine needs oldest first
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	if err := models.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("provider series for %s %s: %w", symbol, timeframe, err)
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Int("count", len(candles)).
		Msg("candles fetched")

	return candles, nil
}

// GetHistoricalCandles fetches enough candles to cover the given number
// of days on the given timeframe.
func (c *Client) GetHistoricalCandles(ctx context.Context, symbol, timeframe string, days int) ([]models.Candle, error) {
	return c.GetCandles(ctx, symbol, timeframe, models.CandlesForDays(timeframe, days))
}

// parseDatetime handles the provider's two timestamp layouts: intraday
// bars carry a time component, daily and larger bars do not.
func parseDatetime(value string) (time.Time, error) {
	if ts, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", value)
}
