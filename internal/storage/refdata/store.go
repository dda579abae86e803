package refdata

import (
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/models"
)

// DefaultSearchLimit caps name searches when the caller passes no limit.
const DefaultSearchLimit = 10

// Store is a read-only in-memory index over the reference dataset.
// The dataset is loaded exactly once, on the first call to any method.
type Store struct {
	source Source
	logger *common.Logger

	once    sync.Once
	err     error
	byCode  map[string]models.StockRecord
	ordered []models.StockRecord
}

// NewStore creates a store that loads from source on first use.
func NewStore(source Source, logger *common.Logger) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Store{source: source, logger: logger}
}

// Initialize loads the dataset. Every call returns the result of the single load.
func (s *Store) Initialize() error {
	s.once.Do(s.load)
	return s.err
}

func (s *Store) load() {
	start := time.Now()

	data, err := s.source.read()
	if err != nil {
		s.err = &DatasetError{Path: s.source.name, Err: err}
		return
	}

	entries, err := decodeOrdered(data)
	if err != nil {
		s.err = &DatasetError{Path: s.source.name, Err: err}
		return
	}

	records, err := parseRecords(entries)
	if err != nil {
		s.err = &DatasetError{Path: s.source.name, Err: err}
		return
	}

	byCode := make(map[string]models.StockRecord, len(records))
	for _, r := range records {
		byCode[r.Code] = r
	}

	s.byCode = byCode
	s.ordered = records

	s.logger.Info().
		Str("dataset", s.source.name).
		Int("records", len(records)).
		Dur("elapsed", time.Since(start)).
		Msg("Reference dataset loaded")
}

// NormalizeCode trims whitespace and strips a .TW or .TWO market suffix.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	upper := strings.ToUpper(code)
	switch {
	case strings.HasSuffix(upper, ".TWO"):
		code = code[:len(code)-len(".TWO")]
	case strings.HasSuffix(upper, ".TW"):
		code = code[:len(code)-len(".TW")]
	}
	return strings.TrimSpace(code)
}

// GetByCode returns the record for code. A missing code is (zero, false, nil).
func (s *Store) GetByCode(code string) (models.StockRecord, bool, error) {
	if err := s.Initialize(); err != nil {
		return models.StockRecord{}, false, err
	}
	rec, ok := s.byCode[NormalizeCode(code)]
	return rec, ok, nil
}

// Contains reports whether code is in the dataset. False when the dataset failed to load.
func (s *Store) Contains(code string) bool {
	_, ok, err := s.GetByCode(code)
	return ok && err == nil
}

// SearchByName returns records whose name contains query. An exact name match
// ranks first; the rest keep dataset order. limit <= 0 means DefaultSearchLimit.
func (s *Store) SearchByName(query string, limit int) ([]models.StockRecord, error) {
	if err := s.Initialize(); err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.StockRecord{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var exact, partial []models.StockRecord
	for _, r := range s.ordered {
		name := strings.ToLower(r.Name)
		switch {
		case name == q:
			exact = append(exact, r)
		case strings.Contains(name, q):
			partial = append(partial, r)
		}
	}

	results := append(exact, partial...)
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []models.StockRecord{}
	}
	return results, nil
}

// Len returns the number of loaded records, 0 when the dataset failed to load.
func (s *Store) Len() int {
	if err := s.Initialize(); err != nil {
		return 0
	}
	return len(s.ordered)
}

// Records returns a copy of every record in dataset order.
func (s *Store) Records() ([]models.StockRecord, error) {
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	out := make([]models.StockRecord, len(s.ordered))
	copy(out, s.ordered)
	return out, nil
}

// Path returns the dataset location.
func (s *Store) Path() string {
	return s.source.name
}
