// Package morningstar provides a client for the Morning Star market movers API on RapidAPI
package morningstar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

const (
	DefaultBaseURL   = "https://morning-star.p.rapidapi.com"
	DefaultHost      = "morning-star.p.rapidapi.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 2 // requests per second

	// SourceName identifies this provider in errors and diagnostics
	SourceName = "morningstar"

	// APIKeySetting names the credential in configuration errors
	APIKeySetting = "rapidapi_api_key"

	moversPath = "/market/v3/get-movers"
	maxLosers  = 10
)

// Client implements interfaces.SourceAdapter for the Morning Star top losers list
type Client struct {
	baseURL    string
	host       string
	apiKey     string
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

// WithHost sets the X-RapidAPI-Host header value
func WithHost(host string) ClientOption {
	return func(c *Client) {
		c.host = host
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

// NewClient creates a new Morning Star client. An empty apiKey is allowed;
// every fetch then fails with common.ErrNotConfigured without touching the network.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		host:    DefaultHost,
		apiKey:  strings.TrimSpace(apiKey),
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

// Name returns the provider name
func (c *Client) Name() string {
	return SourceName
}

// Timeout returns the per-request HTTP timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// moversResponse keeps each security raw so one bad item does not fail the list
type moversResponse struct {
	Top10 struct {
		Losers struct {
			Securities []json.RawMessage `json:"Securities"`
		} `json:"Losers"`
	} `json:"Top10"`
}

type security struct {
	Security struct {
		RegionAndTicker string `json:"RegionAndTicker"`
		Name            string `json:"Name"`
	} `json:"Security"`
	Quote struct {
		Price         *float64 `json:"Price"`
		PercentChange *float64 `json:"PercentChange"`
	} `json:"Quote"`
}

// FetchCandidates returns up to ten of the day's biggest US losers
func (c *Client) FetchCandidates(ctx context.Context, params interfaces.FetchParams) (*models.CandidateBatch, error) {
	const op = "get-movers"

	if !c.Configured() {
		return nil, &common.ConfigError{Setting: APIKeySetting}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+moversPath, nil)
	if err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("Morning Star request failed")
		return nil, common.NewSourceError(SourceName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Morning Star non-OK response")
		return nil, common.NewStatusError(SourceName, op, resp.StatusCode)
	}

	var body moversResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("failed to decode response: %w", err))
	}

	limit := maxLosers
	if params.Quota > 0 && params.Quota < limit {
		limit = params.Quota
	}

	batch := &models.CandidateBatch{Source: SourceName}
	for _, raw := range body.Top10.Losers.Securities {
		if len(batch.Candidates) >= limit {
			break
		}
		cand, ok := parseSecurity(raw)
		if !ok {
			batch.Skipped++
			c.logger.Debug().Str("item", string(raw)).Msg("Morning Star item skipped")
			continue
		}
		if params.Accept != nil && !params.Accept(cand.Code) {
			continue
		}
		batch.Candidates = append(batch.Candidates, cand)
	}

	c.logger.Info().
		Int("candidates", len(batch.Candidates)).
		Int("skipped", batch.Skipped).
		Dur("elapsed", elapsed).
		Msg("Morning Star movers fetched")

	return batch, nil
}

// parseSecurity turns one raw item into a candidate. Ticker comes after the
// last ":" of RegionAndTicker ("USA:TSLA").
func parseSecurity(raw json.RawMessage) (models.MoverCandidate, bool) {
	var item security
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.MoverCandidate{}, false
	}

	rt := item.Security.RegionAndTicker
	idx := strings.LastIndex(rt, ":")
	if idx < 0 {
		return models.MoverCandidate{}, false
	}
	ticker := strings.TrimSpace(rt[idx+1:])
	if ticker == "" {
		return models.MoverCandidate{}, false
	}

	cand := models.MoverCandidate{
		Code:        ticker,
		DisplayName: strings.TrimSpace(item.Security.Name),
	}
	if item.Quote.PercentChange != nil {
		cand.RawChangePercent = strconv.FormatFloat(*item.Quote.PercentChange, 'f', -1, 64)
	}
	if item.Quote.Price != nil {
		cand.RawPrice = strconv.FormatFloat(*item.Quote.Price, 'f', -1, 64)
	}
	return cand, true
}

var _ interfaces.SourceAdapter = (*Client)(nil)
