// Package tavily provides a client for the Tavily news search API
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

const (
	DefaultBaseURL    = "https://api.tavily.com"
	DefaultTimeout    = 10 * time.Second
	DefaultRateLimit  = 2 // requests per second
	DefaultMaxResults = 20

	// SourceName identifies this provider in errors and diagnostics
	SourceName = "tavily"

	// APIKeySetting names the credential in configuration errors
	APIKeySetting = "tavily_api_key"

	dateLayout = "2006-01-02"
)

// DefaultDomains limits searches to Taiwanese financial news sites
var DefaultDomains = []string{"ctee.com.tw", "money.udn.com", "bnext.com.tw"}

// Client implements interfaces.NewsSearcher
type Client struct {
	baseURL    string
	apiKey     string
	domains    []string
	maxResults int
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

// WithDomains restricts results to the given sites
func WithDomains(domains ...string) ClientOption {
	return func(c *Client) {
		c.domains = domains
	}
}

// WithMaxResults sets the number of results requested
func WithMaxResults(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
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

// NewClient creates a new Tavily client. Searches fail with common.ErrNotConfigured
// while apiKey is empty.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
		domains:    DefaultDomains,
		maxResults: DefaultMaxResults,
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

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	Topic          string   `json:"topic"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search runs a news search and returns the hits in relevance order
func (c *Client) Search(ctx context.Context, query string) ([]models.NewsArticle, error) {
	const op = "search"

	if c.apiKey == "" {
		return nil, &common.ConfigError{Setting: APIKeySetting}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("rate limit wait: %w", err))
	}

	payload, err := json.Marshal(searchRequest{
		APIKey:         c.apiKey,
		Query:          query,
		SearchDepth:    "basic",
		Topic:          "news",
		MaxResults:     c.maxResults,
		IncludeDomains: c.domains,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Dur("elapsed", elapsed).Msg("Tavily request failed")
		return nil, common.NewSourceError(SourceName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("query", query).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Tavily non-OK response")
		return nil, common.NewStatusError(SourceName, op, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, common.NewSourceError(SourceName, op, fmt.Errorf("failed to decode response: %w", err))
	}

	articles := make([]models.NewsArticle, 0, len(body.Results))
	for _, r := range body.Results {
		articles = append(articles, models.NewsArticle{
			Title:   strings.TrimSpace(r.Title),
			URL:     r.URL,
			Summary: strings.TrimSpace(r.Content),
			Date:    ArticleDate(r.PublishedDate, r.URL),
			Source:  sourceHost(r.URL),
		})
	}

	c.logger.Info().Str("query", query).Int("results", len(articles)).Dur("elapsed", elapsed).Msg("Tavily search")
	return articles, nil
}

var publishedLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dateLayout,
}

// cteeDatePattern matches the /YYYYMMDD/ segment of ctee.com.tw article URLs
var cteeDatePattern = regexp.MustCompile(`/(\d{4})(\d{2})(\d{2})/`)

// ArticleDate returns the publication date as YYYY-MM-DD. Without a usable
// published date, ctee.com.tw URLs carry one in the path. Otherwise "".
func ArticleDate(published, articleURL string) string {
	if published = strings.TrimSpace(published); published != "" {
		for _, layout := range publishedLayouts {
			if t, err := time.Parse(layout, published); err == nil {
				return t.Format(dateLayout)
			}
		}
	}

	if strings.Contains(articleURL, "ctee.com.tw") {
		if m := cteeDatePattern.FindStringSubmatch(articleURL); m != nil {
			d := m[1] + "-" + m[2] + "-" + m[3]
			if _, err := time.Parse(dateLayout, d); err == nil {
				return d
			}
		}
	}
	return ""
}

func sourceHost(articleURL string) string {
	u, err := url.Parse(articleURL)
	if err != nil || u.Host == "" {
		return "Unknown"
	}
	return u.Host
}

var _ interfaces.NewsSearcher = (*Client)(nil)
