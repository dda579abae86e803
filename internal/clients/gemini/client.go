// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultMaxURLs = 20

	// APIKeySetting names the credential in configuration errors
	APIKeySetting = "gemini_api_key"
)

// Client implements interfaces.Summarizer on the Gemini API
type Client struct {
	client  *genai.Client
	model   string
	maxURLs int
	baseURL string
	logger  *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxURLs sets the maximum URLs for URL context
func WithMaxURLs(maxURLs int) ClientOption {
	return func(c *Client) {
		c.maxURLs = maxURLs
	}
}

// WithBaseURL points the client at a different API endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client. An empty key is a *common.ConfigError.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &common.ConfigError{Setting: APIKeySetting}
	}

	c := &Client{
		model:   DefaultModel,
		maxURLs: DefaultMaxURLs,
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	genaiClient, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.client = genaiClient

	return c, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// GenerateContent generates AI content from a prompt
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// GenerateWithURLContext generates content using Gemini's URL context tool.
// If urls are provided, they are prepended to the prompt as reference URLs.
func (c *Client) GenerateWithURLContext(ctx context.Context, prompt string, urls ...string) (string, error) {
	if len(urls) > c.maxURLs {
		urls = urls[:c.maxURLs]
	}
	c.logger.Debug().Str("model", c.model).Int("urls", len(urls)).Msg("Generating content with URL context")

	if len(urls) > 0 {
		var sb strings.Builder
		sb.WriteString("Reference URLs:\n")
		for _, u := range urls {
			sb.WriteString("- ")
			sb.WriteString(u)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(prompt)
		prompt = sb.String()
	}

	contents := genai.Text(prompt)
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{URLContext: &genai.URLContext{}}},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content with URL context: %w", err)
	}

	return extractTextFromResponse(result)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}

// SummarizeNews asks the model for a short digest of the articles about one stock
func (c *Client) SummarizeNews(ctx context.Context, symbol, name string, articles []models.NewsArticle) (string, error) {
	prompt := BuildNewsSummaryPrompt(symbol, name, articles)

	urls := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.URL != "" {
			urls = append(urls, a.URL)
		}
	}
	return c.GenerateWithURLContext(ctx, prompt, urls...)
}

// BuildNewsSummaryPrompt creates the news digest prompt. The answer is requested
// in Traditional Chinese to match the sources.
func BuildNewsSummaryPrompt(symbol, name string, articles []models.NewsArticle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "以下是關於 %s %s 的近期新聞。請用繁體中文整理重點：\n", symbol, name)
	sb.WriteString("1. 近期股價波動的可能原因\n")
	sb.WriteString("2. 公司營運與產業相關的重要消息\n")
	sb.WriteString("3. 投資人需要留意的風險\n\n")

	for i, a := range articles {
		fmt.Fprintf(&sb, "[%d] %s", i+1, a.Title)
		if a.Date != "" {
			fmt.Fprintf(&sb, " (%s)", a.Date)
		}
		if a.Source != "" {
			fmt.Fprintf(&sb, " - %s", a.Source)
		}
		sb.WriteString("\n")
		if summary := strings.TrimSpace(a.Summary); summary != "" {
			sb.WriteString(summary)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("請以條列方式回答，不超過 300 字。")
	return sb.String()
}

var _ interfaces.Summarizer = (*Client)(nil)
