// Package histock scrapes the HiStock day-trading ranking page
package histock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

const (
	DefaultBaseURL   = "https://histock.tw"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 2 // requests per second

	// SourceName identifies this provider in errors and diagnostics
	SourceName = "histock"

	rankPath  = "/stock/rank.aspx"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client fetches the HiStock loser ranking of day-tradable stocks
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

// NewClient creates a new HiStock client
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

// Name returns the provider name
func (c *Client) Name() string {
	return SourceName
}

// Timeout returns the per-request HTTP timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// FetchDayTradingLosers scrapes the day-tradable losers ranking (m=4 losers, d=0
// day-tradable, t=dt today). Rows are returned in page order, which is most
// negative first.
func (c *Client) FetchDayTradingLosers(ctx context.Context, params interfaces.FetchParams) (*models.CandidateBatch, error) {
	const op = "day-trading ranking"

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("rate limit wait: %w", err))
	}

	q := url.Values{}
	q.Set("m", "4")
	q.Set("d", "0")
	q.Set("t", "dt")
	reqURL := c.baseURL + rankPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("HiStock request failed")
		return nil, common.NewSourceError(SourceName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("HiStock non-OK response")
		return nil, common.NewStatusError(SourceName, op, resp.StatusCode)
	}

	batch, err := parseRankTable(resp.Body, params)
	if err != nil {
		return nil, common.NewSourceError(SourceName, op, err)
	}

	c.logger.Info().
		Int("candidates", len(batch.Candidates)).
		Int("skipped", batch.Skipped).
		Dur("elapsed", elapsed).
		Msg("HiStock ranking fetched")

	return batch, nil
}

// FetchCandidates implements interfaces.SourceAdapter
func (c *Client) FetchCandidates(ctx context.Context, params interfaces.FetchParams) (*models.CandidateBatch, error) {
	return c.FetchDayTradingLosers(ctx, params)
}

// parseRankTable extracts rows of table.gvTB. Columns are code, name, price,
// change, change percent. Rows without data cells (headers) are ignored; rows
// with fewer than five cells are counted as skipped. Scanning stops once
// params.Quota usable rows are collected.
func parseRankTable(r io.Reader, params interfaces.FetchParams) (*models.CandidateBatch, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table.gvTB").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("ranking table not found")
	}

	batch := &models.CandidateBatch{Source: SourceName}
	usable := 0
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		switch n := cells.Length(); {
		case n == 0:
			return true
		case n < 5:
			batch.Skipped++
			return true
		}

		code := cellText(cells, 0)
		if code == "" {
			batch.Skipped++
			return true
		}
		if params.Accept != nil && !params.Accept(code) {
			return true
		}

		cand := models.MoverCandidate{
			Code:             code,
			DisplayName:      cellText(cells, 1),
			RawPrice:         cellText(cells, 2),
			RawChangePercent: cellText(cells, 4),
		}
		batch.Candidates = append(batch.Candidates, cand)
		if params.Usable == nil || params.Usable(cand) {
			usable++
		}

		return params.Quota <= 0 || usable < params.Quota
	})

	return batch, nil
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

var _ interfaces.SourceAdapter = (*Client)(nil)
