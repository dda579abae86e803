// Package news searches and summarizes recent news about a stock
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/stockreplay/internal/clients/gemini"
	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
	"github.com/bobmcallan/stockreplay/internal/storage/refdata"
)

var (
	// ErrInvalidRequest means the symbol is missing or a date is malformed
	ErrInvalidRequest = errors.New("invalid news request")

	// ErrNoArticles means the search returned nothing to summarize
	ErrNoArticles = errors.New("no news articles found")
)

const dateLayout = "2006-01-02"

// articleSummarizer is implemented by summarizers that build their own prompt
// and can read the article pages directly.
type articleSummarizer interface {
	SummarizeNews(ctx context.Context, symbol, name string, articles []models.NewsArticle) (string, error)
}

// Service implements interfaces.NewsService
type Service struct {
	store      interfaces.ReferenceStore
	names      interfaces.NameResolver
	searcher   interfaces.NewsSearcher
	summarizer interfaces.Summarizer
	logger     *common.Logger
}

// NewService creates a news service. names and summarizer may be nil;
// without a summarizer Summarize reports the Gemini key as not configured.
func NewService(
	store interfaces.ReferenceStore,
	names interfaces.NameResolver,
	searcher interfaces.NewsSearcher,
	summarizer interfaces.Summarizer,
	logger *common.Logger,
) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		store:      store,
		names:      names,
		searcher:   searcher,
		summarizer: summarizer,
		logger:     logger,
	}
}

// BuildQuery forms the search query for a stock
func BuildQuery(code, name string) string {
	if name == "" {
		return code + " news"
	}
	return fmt.Sprintf("%s %s news", code, name)
}

// resolveName finds the display name of code, preferring the reference data.
// Lookup failures only cost the name.
func (s *Service) resolveName(ctx context.Context, code string) string {
	if s.store != nil {
		rec, ok, err := s.store.GetByCode(code)
		if err != nil {
			s.logger.Warn().Err(err).Str("code", code).Msg("Reference lookup failed")
		} else if ok {
			return rec.Name
		}
	}

	if s.names == nil {
		return ""
	}
	name, ok, err := s.names.LookupName(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Name lookup failed")
		return ""
	}
	if !ok {
		return ""
	}
	return name
}

func parseDate(field, value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s %q", ErrInvalidRequest, field, value)
	}
	return t, true, nil
}

// FetchNews searches news for the requested stock. Articles whose date is known
// and falls outside the requested range are dropped.
func (s *Service) FetchNews(ctx context.Context, req models.NewsRequest) (*models.NewsResult, error) {
	result, _, err := s.fetch(ctx, req)
	return result, err
}

func (s *Service) fetch(ctx context.Context, req models.NewsRequest) (*models.NewsResult, string, error) {
	code := refdata.NormalizeCode(req.Symbol)
	if code == "" {
		return nil, "", fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}

	from, hasFrom, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, "", err
	}
	to, hasTo, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, "", err
	}
	if hasFrom && hasTo && to.Before(from) {
		return nil, "", fmt.Errorf("%w: end_date before start_date", ErrInvalidRequest)
	}

	name := s.resolveName(ctx, code)
	query := BuildQuery(code, name)

	articles, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, "", fmt.Errorf("news search for %s: %w", code, err)
	}

	kept := make([]models.NewsArticle, 0, len(articles))
	dropped := 0
	for _, a := range articles {
		if a.Date != "" {
			d, err := time.Parse(dateLayout, a.Date)
			if err == nil && ((hasFrom && d.Before(from)) || (hasTo && d.After(to))) {
				dropped++
				continue
			}
		}
		kept = append(kept, a)
	}

	s.logger.Info().Str("code", code).Str("query", query).Int("articles", len(kept)).Int("out_of_range", dropped).Msg("News fetched")

	return &models.NewsResult{
		Symbol: code,
		Query:  query,
		Count:  len(kept),
		Data:   kept,
	}, name, nil
}

// Summarize fetches the latest news for symbol and asks the summarizer for a digest
func (s *Service) Summarize(ctx context.Context, symbol string) (*models.NewsSummary, error) {
	if s.summarizer == nil {
		return nil, &common.ConfigError{Setting: gemini.APIKeySetting}
	}

	result, name, err := s.fetch(ctx, models.NewsRequest{Symbol: symbol})
	if err != nil {
		return nil, err
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoArticles, result.Symbol)
	}

	var text string
	if as, ok := s.summarizer.(articleSummarizer); ok {
		text, err = as.SummarizeNews(ctx, result.Symbol, name, result.Data)
	} else {
		text, err = s.summarizer.GenerateContent(ctx, gemini.BuildNewsSummaryPrompt(result.Symbol, name, result.Data))
	}
	if err != nil {
		return nil, fmt.Errorf("news summary for %s: %w", result.Symbol, err)
	}

	sources := make([]string, 0, len(result.Data))
	seen := make(map[string]bool, len(result.Data))
	for _, a := range result.Data {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		sources = append(sources, a.URL)
	}

	return &models.NewsSummary{
		Symbol:  result.Symbol,
		Summary: strings.TrimSpace(text),
		Sources: sources,
	}, nil
}

var _ interfaces.NewsService = (*Service)(nil)
