package movers

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"

	"github.com/bobmcallan/stockreplay/internal/models"
)

// RecordLookup is the part of the reference store the Reconciler needs
type RecordLookup interface {
	GetByCode(code string) (models.StockRecord, bool, error)
}

// ReconcileStats counts rows dropped or repaired during reconciliation
type ReconcileStats struct {
	Unknown    int // code not in the reference dataset
	BadChange  int // change percent missing or unparseable, row dropped
	BadPrice   int // price unparseable, replaced with 0
	Duplicates int // code already seen earlier in the input
}

var errEmptyNumber = errors.New("empty number")

// parseNumber reads a locale-formatted number: full-width digits and signs,
// thousands separators, percent signs, surrounding space and a leading "+".
func parseNumber(raw string) (decimal.Decimal, error) {
	s := width.Narrow.String(raw)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == ',' || r == '%' || unicode.IsSpace(r):
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, errEmptyNumber
	}
	return decimal.NewFromString(s)
}

// Rankable reports whether a candidate's change percent parses, which is what
// Reconcile needs to keep the row.
func Rankable(c models.MoverCandidate) bool {
	_, err := parseNumber(c.RawChangePercent)
	return err == nil
}

// round2 rounds half away from zero to two decimal places
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Reconcile turns raw candidates into market movers. With crossReference set,
// only candidates whose code is in the reference dataset survive and their
// identity fields come from the dataset. Otherwise the symbol is the code and
// the name is the source's own label. Later duplicates of a code are dropped.
// The only error is a dataset load failure.
func Reconcile(store RecordLookup, candidates []models.MoverCandidate, crossReference bool) ([]models.MarketMover, ReconcileStats, error) {
	var stats ReconcileStats
	movers := make([]models.MarketMover, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))

	for _, c := range candidates {
		code := strings.TrimSpace(c.Code)

		var mover models.MarketMover
		if crossReference {
			rec, ok, err := store.GetByCode(code)
			if err != nil {
				return nil, stats, err
			}
			if !ok {
				stats.Unknown++
				continue
			}
			mover = models.MarketMover{
				Code:     rec.Code,
				Symbol:   rec.Symbol,
				Name:     rec.Name,
				Industry: rec.Industry,
			}
		} else {
			if code == "" {
				stats.Unknown++
				continue
			}
			name := strings.TrimSpace(c.DisplayName)
			if name == "" {
				name = code
			}
			mover = models.MarketMover{
				Code:   code,
				Symbol: code,
				Name:   name,
			}
		}

		change, err := parseNumber(c.RawChangePercent)
		if err != nil {
			stats.BadChange++
			continue
		}
		mover.ChangePercent = round2(change)

		if price, err := parseNumber(c.RawPrice); err == nil {
			mover.Price = round2(price)
		} else if !errors.Is(err, errEmptyNumber) {
			stats.BadPrice++
		}

		if seen[mover.Code] {
			stats.Duplicates++
			continue
		}
		seen[mover.Code] = true

		movers = append(movers, mover)
	}

	return movers, stats, nil
}
