package movers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

// ETFSourceName identifies the ETF history adapter
const ETFSourceName = "yahoo_etf"

const (
	defaultETFConcurrency = 10
	defaultETFTimeout     = 10 * time.Second
	etfHistoryRange       = "5d"
)

// ETF is one instrument of the US ETF universe
type ETF struct {
	Symbol string
	Name   string
}

// DefaultETFUniverse is the fixed list of widely traded US ETFs
var DefaultETFUniverse = []ETF{
	{"SPY", "S&P 500"},
	{"QQQ", "Nasdaq 100"},
	{"IWM", "Russell 2000"},
	{"DIA", "Dow Jones"},
	{"VTI", "Total Market"},
	{"EEM", "Emerging Markets"},
	{"GLD", "Gold"},
	{"TLT", "Treasury Bond"},
	{"XLF", "Financial"},
	{"XLE", "Energy"},
	{"XLK", "Technology"},
	{"XLV", "Healthcare"},
	{"XLI", "Industrial"},
	{"XLP", "Consumer Staples"},
	{"XLY", "Consumer Disc"},
	{"XLU", "Utilities"},
	{"XLB", "Materials"},
	{"XLRE", "Real Estate"},
	{"VNQ", "REIT"},
	{"HYG", "High Yield Bond"},
}

// ETFSource computes the latest daily change of each ETF from its price history
type ETFSource struct {
	history     interfaces.HistoryProvider
	universe    []ETF
	concurrency int
	timeout     time.Duration
	logger      *common.Logger
}

// ETFOption configures an ETFSource
type ETFOption func(*ETFSource)

// WithUniverse replaces the default ETF list
func WithUniverse(universe []ETF) ETFOption {
	return func(s *ETFSource) {
		s.universe = universe
	}
}

// WithConcurrency bounds in-flight history requests
func WithConcurrency(n int) ETFOption {
	return func(s *ETFSource) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSymbolTimeout sets the per-symbol request timeout used to size the deadline
func WithSymbolTimeout(d time.Duration) ETFOption {
	return func(s *ETFSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithETFLogger sets the logger
func WithETFLogger(logger *common.Logger) ETFOption {
	return func(s *ETFSource) {
		s.logger = logger
	}
}

// NewETFSource creates an ETF adapter over a history provider
func NewETFSource(history interfaces.HistoryProvider, opts ...ETFOption) *ETFSource {
	s := &ETFSource{
		history:     history,
		universe:    DefaultETFUniverse,
		concurrency: defaultETFConcurrency,
		timeout:     defaultETFTimeout,
		logger:      common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the adapter name
func (s *ETFSource) Name() string {
	return ETFSourceName
}

// Timeout is the time needed to fetch the whole universe in waves of s.concurrency
func (s *ETFSource) Timeout() time.Duration {
	waves := (len(s.universe) + s.concurrency - 1) / s.concurrency
	if waves < 1 {
		waves = 1
	}
	return time.Duration(waves) * s.timeout
}

type etfResult struct {
	candidate models.MoverCandidate
	ok        bool
	skipped   bool
	err       error
}

// FetchCandidates fetches a short history per ETF and derives the change between
// the last two closes. params.Symbols overrides the universe. A failing symbol is
// logged and skipped; the batch fails only when every symbol failed.
func (s *ETFSource) FetchCandidates(ctx context.Context, params interfaces.FetchParams) (*models.CandidateBatch, error) {
	etfs := s.universe
	if len(params.Symbols) > 0 {
		etfs = s.lookupETFs(params.Symbols)
	}

	results := make([]etfResult, len(etfs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, etf := range etfs {
		g.Go(func() error {
			results[i] = s.fetchOne(ctx, etf)
			return nil
		})
	}
	g.Wait()

	batch := &models.CandidateBatch{Source: ETFSourceName}
	var lastErr error
	failed := 0
	for i, r := range results {
		switch {
		case r.err != nil:
			failed++
			lastErr = r.err
			s.logger.Warn().Err(r.err).Str("symbol", etfs[i].Symbol).Msg("ETF history failed")
		case r.skipped:
			batch.Skipped++
		case r.ok:
			if params.Accept != nil && !params.Accept(r.candidate.Code) {
				continue
			}
			batch.Candidates = append(batch.Candidates, r.candidate)
		}
	}

	if len(etfs) > 0 && failed == len(etfs) {
		return nil, common.NewSourceError(ETFSourceName, "history", fmt.Errorf("all %d symbols failed: %w", failed, lastErr))
	}

	s.logger.Info().
		Int("candidates", len(batch.Candidates)).
		Int("skipped", batch.Skipped).
		Int("failed", failed).
		Msg("ETF changes computed")

	return batch, nil
}

func (s *ETFSource) fetchOne(ctx context.Context, etf ETF) etfResult {
	candles, err := s.history.GetHistory(ctx, etf.Symbol, etfHistoryRange)
	if err != nil {
		return etfResult{err: err}
	}

	latest, previous, ok := lastTwoCloses(candles)
	if !ok {
		return etfResult{skipped: true}
	}

	change := latest.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	return etfResult{
		ok: true,
		candidate: models.MoverCandidate{
			Code:             etf.Symbol,
			DisplayName:      etf.Name,
			RawPrice:         latest.String(),
			RawChangePercent: change.String(),
		},
	}
}

// lastTwoCloses returns the last two positive closes, latest first
func lastTwoCloses(candles []models.Candle) (decimal.Decimal, decimal.Decimal, bool) {
	var closes []decimal.Decimal
	for i := len(candles) - 1; i >= 0 && len(closes) < 2; i-- {
		if candles[i].Close > 0 {
			closes = append(closes, decimal.NewFromFloat(candles[i].Close))
		}
	}
	if len(closes) < 2 {
		return decimal.Zero, decimal.Zero, false
	}
	return closes[0], closes[1], true
}

func (s *ETFSource) lookupETFs(symbols []string) []ETF {
	names := make(map[string]string, len(s.universe))
	for _, e := range s.universe {
		names[e.Symbol] = e.Name
	}
	out := make([]ETF, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		name := names[sym]
		if name == "" {
			name = sym
		}
		out = append(out, ETF{Symbol: sym, Name: name})
	}
	return out
}

var _ interfaces.SourceAdapter = (*ETFSource)(nil)
