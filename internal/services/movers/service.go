// Package movers builds ranked market mover snapshots from live sources,
// falling back to static data when the sources fail.
package movers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/interfaces"
	"github.com/bobmcallan/stockreplay/internal/models"
)

// ErrUnknownKind is returned by ParseKind for an unsupported snapshot kind
var ErrUnknownKind = errors.New("unknown snapshot kind")

const (
	defaultGrace          = 500 * time.Millisecond
	defaultAdapterTimeout = 10 * time.Second
)

// kindRule holds the fixed rules of one snapshot kind
type kindRule struct {
	crossReference bool
	minimum        int
	cap            int
	fallback       []models.MarketMover
}

var kindRules = map[models.SnapshotKind]kindRule{
	models.KindDayTrading:  {crossReference: true, minimum: 6, cap: 3, fallback: dayTradingFallback},
	models.KindUSETF:       {crossReference: false, minimum: 1, cap: 10, fallback: usETFFallback},
	models.KindMorningStar: {crossReference: false, minimum: 1, cap: 10, fallback: morningStarFallback},
}

// ParseKind validates a snapshot kind name
func ParseKind(s string) (models.SnapshotKind, error) {
	kind := models.SnapshotKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindRules[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return kind, nil
}

// Sources lists the adapters consulted for each snapshot kind
type Sources struct {
	DayTrading  []interfaces.SourceAdapter
	USETF       []interfaces.SourceAdapter
	MorningStar []interfaces.SourceAdapter
}

func (s Sources) forKind(kind models.SnapshotKind) []interfaces.SourceAdapter {
	switch kind {
	case models.KindDayTrading:
		return s.DayTrading
	case models.KindUSETF:
		return s.USETF
	case models.KindMorningStar:
		return s.MorningStar
	}
	return nil
}

// timeoutReporter is implemented by adapters that know their own request budget
type timeoutReporter interface {
	Timeout() time.Duration
}

// counters are process-lifetime statistics
type counters struct {
	requests     atomic.Int64
	fallbacks    atomic.Int64
	rowsSkipped  atomic.Int64
	unknownCodes atomic.Int64
	reasons      map[string]*atomic.Int64
}

func newCounters() *counters {
	c := &counters{reasons: make(map[string]*atomic.Int64)}
	for _, r := range []string{
		models.ReasonNotConfigured,
		models.ReasonSourceUnavailable,
		models.ReasonInsufficientData,
		models.ReasonDeadlineExceeded,
		models.ReasonDatasetError,
	} {
		c.reasons[r] = new(atomic.Int64)
	}
	return c
}

// Service implements interfaces.SnapshotService
type Service struct {
	store          interfaces.ReferenceStore
	sources        Sources
	grace          time.Duration
	defaultTimeout time.Duration
	logger         *common.Logger
	stats          *counters
}

// Option configures the service
type Option func(*Service)

// WithGrace sets the slack added to the summed adapter timeouts
func WithGrace(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.grace = d
		}
	}
}

// WithDefaultTimeout sets the budget assumed for adapters that do not report one
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

// NewService creates a new snapshot service
func NewService(store interfaces.ReferenceStore, sources Sources, logger *common.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Service{
		store:          store,
		sources:        sources,
		grace:          defaultGrace,
		defaultTimeout: defaultAdapterTimeout,
		logger:         logger,
		stats:          newCounters(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sourceResult is the outcome of one adapter call
type sourceResult struct {
	name  string
	batch *models.CandidateBatch
	err   error
}

// deadline is the sum of the adapters' budgets plus grace
func (s *Service) deadline(adapters []interfaces.SourceAdapter) time.Duration {
	total := s.grace
	for _, a := range adapters {
		if tr, ok := a.(timeoutReporter); ok && tr.Timeout() > 0 {
			total += tr.Timeout()
		} else {
			total += s.defaultTimeout
		}
	}
	return total
}

// params builds the fetch parameters for a kind. Cross-referenced kinds only
// collect known codes and stop once the minimum of rankable rows is reached.
func (s *Service) params(rule kindRule) interfaces.FetchParams {
	if !rule.crossReference {
		return interfaces.FetchParams{}
	}
	return interfaces.FetchParams{Quota: rule.minimum, Accept: s.store.Contains, Usable: Rankable}
}

// GetSnapshot builds a ranked snapshot for kind. It never fails: when the live
// path cannot produce enough rows the kind's static fallback set is returned
// and FallbackReason says why.
func (s *Service) GetSnapshot(ctx context.Context, kind models.SnapshotKind) *models.Snapshot {
	start := time.Now()
	s.stats.requests.Add(1)

	rule, ok := kindRules[kind]
	if !ok {
		s.logger.Warn().Str("kind", string(kind)).Msg("Snapshot requested for unknown kind")
		return &models.Snapshot{
			Kind:           kind,
			Movers:         []models.MarketMover{},
			Source:         models.SnapshotFallback,
			FallbackReason: models.ReasonInsufficientData,
		}
	}

	snap := &models.Snapshot{Kind: kind}
	adapters := s.sources.forKind(kind)
	if len(adapters) == 0 {
		return s.fallback(snap, models.ReasonNotConfigured, start)
	}

	budget := s.deadline(adapters)
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	params := s.params(rule)
	results := make(chan sourceResult, len(adapters))
	for _, a := range adapters {
		go func() {
			batch, err := a.FetchCandidates(ctx, params)
			results <- sourceResult{name: a.Name(), batch: batch, err: err}
		}()
	}

	snap.Diagnostics.SourcesAttempted = len(adapters)

	var candidates []models.MoverCandidate
	var errs []error
	expired := false

collect:
	for received := 0; received < len(adapters); received++ {
		select {
		case r := <-results:
			if r.err != nil {
				snap.Diagnostics.SourcesFailed++
				errs = append(errs, r.err)
				s.logger.Warn().Err(r.err).Str("kind", string(kind)).Str("source", r.name).Msg("Snapshot source failed")
				continue
			}
			if r.batch == nil {
				continue
			}
			snap.Diagnostics.RowsSkipped += r.batch.Skipped
			candidates = append(candidates, r.batch.Candidates...)
		case <-ctx.Done():
			expired = true
			break collect
		}
	}

	s.stats.rowsSkipped.Add(int64(snap.Diagnostics.RowsSkipped))

	if expired {
		s.logger.Warn().Str("kind", string(kind)).Dur("budget", budget).Msg("Snapshot deadline exceeded")
		return s.fallback(snap, models.ReasonDeadlineExceeded, start)
	}
	if len(errs) == len(adapters) {
		return s.fallback(snap, failureReason(errs), start)
	}

	movers, stats, err := Reconcile(s.store, candidates, rule.crossReference)
	snap.Diagnostics.UnknownCodes = stats.Unknown
	snap.Diagnostics.BadChange = stats.BadChange
	snap.Diagnostics.BadPrice = stats.BadPrice
	s.stats.unknownCodes.Add(int64(stats.Unknown))
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("Snapshot reconcile failed")
		return s.fallback(snap, models.ReasonDatasetError, start)
	}

	sortMovers(movers)
	if len(movers) < rule.minimum {
		s.logger.Info().Str("kind", string(kind)).Int("usable", len(movers)).Int("minimum", rule.minimum).Msg("Snapshot has too few rows")
		return s.fallback(snap, models.ReasonInsufficientData, start)
	}
	if len(movers) > rule.cap {
		movers = movers[:rule.cap]
	}

	snap.Movers = movers
	snap.Source = models.SnapshotLive

	s.logger.Info().
		Str("kind", string(kind)).
		Str("source", snap.Source).
		Int("movers", len(movers)).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot built")

	return snap
}

func (s *Service) fallback(snap *models.Snapshot, reason string, start time.Time) *models.Snapshot {
	s.stats.fallbacks.Add(1)
	if c, ok := s.stats.reasons[reason]; ok {
		c.Add(1)
	}

	snap.Movers = FallbackSet(snap.Kind)
	snap.Source = models.SnapshotFallback
	snap.FallbackReason = reason

	s.logger.Info().
		Str("kind", string(snap.Kind)).
		Str("source", snap.Source).
		Str("reason", reason).
		Int("movers", len(snap.Movers)).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot built")

	return snap
}

// failureReason is not_configured when every failure was a missing setting
func failureReason(errs []error) string {
	for _, err := range errs {
		if !errors.Is(err, common.ErrNotConfigured) {
			return models.ReasonSourceUnavailable
		}
	}
	return models.ReasonNotConfigured
}

// sortMovers orders by change percent ascending, then code
func sortMovers(movers []models.MarketMover) {
	sort.SliceStable(movers, func(i, j int) bool {
		if movers[i].ChangePercent != movers[j].ChangePercent {
			return movers[i].ChangePercent < movers[j].ChangePercent
		}
		return movers[i].Code < movers[j].Code
	})
}

// Stats returns process-lifetime counters
func (s *Service) Stats() models.SnapshotStats {
	reasons := make(map[string]int64, len(s.stats.reasons))
	for r, c := range s.stats.reasons {
		reasons[r] = c.Load()
	}
	return models.SnapshotStats{
		Requests:        s.stats.requests.Load(),
		Fallbacks:       s.stats.fallbacks.Load(),
		FallbackReasons: reasons,
		RowsSkipped:     s.stats.rowsSkipped.Load(),
		UnknownCodes:    s.stats.unknownCodes.Load(),
	}
}

var _ interfaces.SnapshotService = (*Service)(nil)
