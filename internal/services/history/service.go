// Package history serves daily candle history and price charts
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

var (
	// ErrNoData means the provider returned no candles for the request
	ErrNoData = errors.New("no data found")

	// ErrInvalidPeriod means the period name is not supported
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidDate means a start/end date is malformed or the range is inverted
	ErrInvalidDate = errors.New("invalid date range")
)

// DefaultPeriod is used when neither a period nor a date range is given
const DefaultPeriod = "1mo"

const dateLayout = "2006-01-02"

// ValidPeriods lists the supported named ranges
var ValidPeriods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "ytd", "max"}

// Service implements interfaces.HistoryService
type Service struct {
	provider interfaces.HistoryProvider
	logger   *common.Logger
}

// NewService creates a new history service
func NewService(provider interfaces.HistoryProvider, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{provider: provider, logger: logger}
}

// NormalizeSymbol upper-cases symbol and gives bare Taiwan codes a .TW suffix
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol != "" && strings.IndexFunc(symbol, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		symbol += ".TW"
	}
	return symbol
}

func isValidPeriod(p string) bool {
	for _, v := range ValidPeriods {
		if v == p {
			return true
		}
	}
	return false
}

// GetHistory returns the candles of symbol for a period or an inclusive date range.
// A date range wins over a period.
func (s *Service) GetHistory(ctx context.Context, symbol string, query models.HistoryQuery) (*models.StockHistory, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidDate)
	}

	candles, err := s.fetch(ctx, symbol, query)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	history := &models.StockHistory{
		Symbol:     symbol,
		Data:       make([]models.Candle, len(candles)),
		TotalCount: len(candles),
		AllDates:   make([]string, len(candles)),
	}

	minLow := decimal.Zero
	maxHigh := decimal.Zero
	for i, c := range candles {
		open := decimal.NewFromFloat(c.Open).Round(2)
		high := decimal.NewFromFloat(c.High).Round(2)
		low := decimal.NewFromFloat(c.Low).Round(2)
		closePrice := decimal.NewFromFloat(c.Close).Round(2)

		history.Data[i] = models.Candle{
			Timestamp: c.Timestamp,
			Open:      open.InexactFloat64(),
			High:      high.InexactFloat64(),
			Low:       low.InexactFloat64(),
			Close:     closePrice.InexactFloat64(),
			Volume:    c.Volume,
		}
		history.AllDates[i] = c.Timestamp

		if i == 0 || low.LessThan(minLow) {
			minLow = low
		}
		if i == 0 || high.GreaterThan(maxHigh) {
			maxHigh = high
		}
	}
	history.PriceRange = models.PriceRange{
		MinPrice: minLow.InexactFloat64(),
		MaxPrice: maxHigh.InexactFloat64(),
	}

	return history, nil
}

func (s *Service) fetch(ctx context.Context, symbol string, query models.HistoryQuery) ([]models.Candle, error) {
	start := strings.TrimSpace(query.StartDate)
	end := strings.TrimSpace(query.EndDate)

	if start != "" || end != "" {
		if start == "" || end == "" {
			return nil, fmt.Errorf("%w: start_date and end_date must be given together", ErrInvalidDate)
		}
		from, err := time.Parse(dateLayout, start)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date %q", ErrInvalidDate, start)
		}
		to, err := time.Parse(dateLayout, end)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date %q", ErrInvalidDate, end)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("%w: end_date before start_date", ErrInvalidDate)
		}

		// the provider's end is exclusive
		exclusiveEnd := to.AddDate(0, 0, 1).Format(dateLayout)
		s.logger.Debug().Str("symbol", symbol).Str("start", start).Str("end", end).Msg("Fetching candle range")
		return s.provider.GetHistoryBetween(ctx, symbol, start, exclusiveEnd)
	}

	period := strings.ToLower(strings.TrimSpace(query.Period))
	if period == "" {
		period = DefaultPeriod
	}
	if !isValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidPeriod, query.Period, strings.Join(ValidPeriods, ", "))
	}

	s.logger.Debug().Str("symbol", symbol).Str("period", period).Msg("Fetching candle period")
	return s.provider.GetHistory(ctx, symbol, period)
}

var _ interfaces.HistoryService = (*Service)(nil)
