// Package interfaces defines service contracts for StockReplay
package interfaces

import (
	"context"

	"github.com/bobmcallan/stockreplay/internal/models"
)

// FetchParams narrows what a SourceAdapter collects
type FetchParams struct {
	// Quota stops collection once this many accepted, usable rows are gathered (0 = no limit)
	Quota int

	// Accept filters rows by code before they count toward Quota (nil accepts all)
	Accept func(code string) bool

	// Usable reports whether an accepted row can be ranked. Rows that are not
	// usable are still returned but do not count toward Quota (nil counts all).
	Usable func(c models.MoverCandidate) bool

	// Symbols lists the instruments to fetch for per-symbol sources
	Symbols []string
}

// SourceAdapter fetches raw market mover candidates from one external provider.
// Every failure matches common.ErrSourceUnavailable or common.ErrNotConfigured.
type SourceAdapter interface {
	// Name identifies the provider in logs and diagnostics
	Name() string

	// FetchCandidates returns the provider's raw rows
	FetchCandidates(ctx context.Context, params FetchParams) (*models.CandidateBatch, error)
}

// HistoryProvider retrieves daily candles from a chart API
type HistoryProvider interface {
	// GetHistory returns candles for a named range ("5d", "1mo", ...)
	GetHistory(ctx context.Context, symbol, rangeName string) ([]models.Candle, error)

	// GetHistoryBetween returns candles from start (inclusive) to end (exclusive), as YYYY-MM-DD
	GetHistoryBetween(ctx context.Context, symbol, start, end string) ([]models.Candle, error)
}

// NameResolver looks up a display name for a listed symbol
type NameResolver interface {
	// LookupName returns ("", false, nil) when the page gave no usable name
	LookupName(ctx context.Context, symbol string) (string, bool, error)
}

// NewsSearcher runs a news search
type NewsSearcher interface {
	Search(ctx context.Context, query string) ([]models.NewsArticle, error)
}

// Summarizer generates text from a prompt
type Summarizer interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
