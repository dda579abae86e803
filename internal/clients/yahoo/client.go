// Package yahoo provides a client for the Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10 // requests per second

	// SourceName identifies this provider in errors and diagnostics
	SourceName = "yahoo"

	dateLayout = "2006-01-02"
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client implements interfaces.HistoryProvider over the v8 chart endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance chart client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Timeout returns the per-request HTTP timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// chartResponse mirrors the parts of /v8/finance/chart we read.
// Indicator values are nullable on holidays and partial sessions.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetHistory returns daily candles for a named range such as "5d" or "1mo".
// An unknown symbol yields an empty slice.
func (c *Client) GetHistory(ctx context.Context, symbol, rangeName string) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", rangeName)
	return c.fetchChart(ctx, symbol, q)
}

// GetHistoryBetween returns daily candles from start (inclusive) to end (exclusive).
func (c *Client) GetHistoryBetween(ctx context.Context, symbol, start, end string) ([]models.Candle, error) {
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	return c.fetchChart(ctx, symbol, q)
}

func (c *Client) fetchChart(ctx context.Context, symbol string, q url.Values) ([]models.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	op := "chart " + symbol

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("rate limit wait: %w", err))
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("symbol", symbol).Str("query", q.Encode()).Msg("Yahoo chart request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Dur("elapsed", elapsed).Msg("Yahoo chart request failed")
		return nil, common.NewSourceError(SourceName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Info().Str("symbol", symbol).Dur("elapsed", elapsed).Msg("Yahoo chart symbol not found")
		return []models.Candle{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("symbol", symbol).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Yahoo chart non-OK response")
		return nil, common.NewStatusError(SourceName, op, resp.StatusCode)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("failed to decode response: %w", err))
	}
	if chart.Chart.Error != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("%s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description))
	}

	candles := toCandles(&chart)
	c.logger.Debug().Str("symbol", symbol).Int("candles", len(candles)).Dur("elapsed", elapsed).Msg("Yahoo chart call")
	return candles, nil
}

// toCandles converts the column arrays into bars, dropping rows without a close.
// Dates are in the exchange's local time.
func toCandles(chart *chartResponse) []models.Candle {
	candles := []models.Candle{}
	if len(chart.Chart.Result) == 0 {
		return candles
	}
	res := chart.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return candles
	}
	quote := res.Indicators.Quote[0]

	for i, ts := range res.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue
		}
		candle := models.Candle{
			Timestamp: time.Unix(ts+res.Meta.GMTOffset, 0).UTC().Format(dateLayout),
			Close:     *closePrice,
			Open:      valueOr(at(quote.Open, i), *closePrice),
			High:      valueOr(at(quote.High, i), *closePrice),
			Low:       valueOr(at(quote.Low, i), *closePrice),
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}
		candles = append(candles, candle)
	}
	return candles
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

var _ interfaces.HistoryProvider = (*Client)(nil)
