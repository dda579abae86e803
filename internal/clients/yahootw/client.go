// Package yahootw reads stock names from the Yahoo Taiwan quote page
package yahootw

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://tw.stock.yahoo.com"
	DefaultTimeout   = 3 * time.Second
	DefaultRateLimit = 5 // requests per second

	// SourceName identifies this provider in errors and diagnostics
	SourceName = "yahoo_tw"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client resolves Taiwan stock display names from quote page titles
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	group      singleflight.Group
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

// NewClient creates a new Yahoo TW quote page client
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

// NormalizeSymbol upper-cases symbol and adds .TW when it has no market suffix
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !strings.HasSuffix(symbol, ".TW") && !strings.HasSuffix(symbol, ".TWO") {
		symbol += ".TW"
	}
	return symbol
}

type lookupResult struct {
	name string
	ok   bool
}

// LookupName returns the display name shown on the quote page for symbol.
// A page without a usable title, or a 404, yields ("", false, nil).
// Concurrent lookups of the same symbol share one request.
func (c *Client) LookupName(ctx context.Context, symbol string) (string, bool, error) {
	symbol = NormalizeSymbol(symbol)

	ch := c.group.DoChan(symbol, func() (interface{}, error) {
		// the shared fetch outlives any single caller's context
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.httpClient.Timeout)
		defer cancel()
		name, ok, err := c.fetchName(fetchCtx, symbol)
		return lookupResult{name: name, ok: ok}, err
	})

	select {
	case <-ctx.Done():
		return "", false, common.NewSourceError(SourceName, "quote "+symbol, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		r := res.Val.(lookupResult)
		return r.name, r.ok, nil
	}
}

func (c *Client) fetchName(ctx context.Context, symbol string) (string, bool, error) {
	op := "quote " + symbol

	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, common.NewSourceError(SourceName, op, fmt.Errorf("rate limit wait: %w", err))
	}

	reqURL := fmt.Sprintf("%s/quote/%s", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", false, common.NewSourceError(SourceName, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Dur("elapsed", elapsed).Msg("Yahoo TW request failed")
		return "", false, common.NewSourceError(SourceName, op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", false, nil
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn().Str("symbol", symbol).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Yahoo TW non-OK response")
		return "", false, common.NewStatusError(SourceName, op, resp.StatusCode)
	}

	name, err := parseTitleName(resp.Body)
	if err != nil {
		return "", false, common.NewSourceError(SourceName, op, err)
	}

	c.logger.Debug().Str("symbol", symbol).Str("name", name).Dur("elapsed", elapsed).Msg("Yahoo TW name lookup")
	return name, name != "", nil
}

// parseTitleName returns the <title> text before the first "(" ("台積電(2330.TW) 走勢圖 - Yahoo奇摩股市").
func parseTitleName(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	idx := strings.Index(title, "(")
	if idx <= 0 {
		return "", nil
	}
	return strings.TrimSpace(title[:idx]), nil
}

var _ interfaces.NameResolver = (*Client)(nil)
