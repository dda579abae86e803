package models

// SnapshotKind names a market mover ranking
type SnapshotKind string

const (
	KindDayTrading  SnapshotKind = "day-trading"
	KindUSETF       SnapshotKind = "us-etf"
	KindMorningStar SnapshotKind = "morning-star"
)

// Snapshot sources
const (
	SnapshotLive     = "live"
	SnapshotFallback = "fallback"
)

// Fallback reasons reported on a fallback snapshot
const (
	ReasonNotConfigured     = "not_configured"
	ReasonSourceUnavailable = "source_unavailable"
	ReasonInsufficientData  = "insufficient_data"
	ReasonDeadlineExceeded  = "deadline_exceeded"
	ReasonDatasetError      = "dataset_error"
)

// MoverCandidate is a raw row fetched from one source before reconciliation.
// Price and change are kept as the source's text.
type MoverCandidate struct {
	Code             string
	RawPrice         string
	RawChangePercent string
	DisplayName      string
}

// CandidateBatch holds the candidates of one adapter call
type CandidateBatch struct {
	Source     string
	Candidates []MoverCandidate
	Skipped    int // rows dropped by the adapter as malformed
}

// MarketMover is a reconciled, client-visible market mover
type MarketMover struct {
	Code          string  `json:"code"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	ChangePercent float64 `json:"change_percent"`
	Price         float64 `json:"price,omitempty"`
	Industry      string  `json:"industry,omitempty"`
}

// SnapshotDiagnostics counts what happened while building one snapshot
type SnapshotDiagnostics struct {
	SourcesAttempted int `json:"sources_attempted"`
	SourcesFailed    int `json:"sources_failed"`
	RowsSkipped      int `json:"rows_skipped"`
	UnknownCodes     int `json:"unknown_codes"`
	BadChange        int `json:"bad_change"`
	BadPrice         int `json:"bad_price"`
}

// Snapshot is the result of one market mover request
type Snapshot struct {
	Kind           SnapshotKind        `json:"kind"`
	Movers         []MarketMover       `json:"stocks"`
	Source         string              `json:"source"`
	FallbackReason string              `json:"fallback_reason,omitempty"`
	Diagnostics    SnapshotDiagnostics `json:"diagnostics"`
}

// IsFallback reports whether the snapshot carries static fallback data
func (s *Snapshot) IsFallback() bool {
	return s.Source == SnapshotFallback
}

// SnapshotStats are process-lifetime aggregator counters
type SnapshotStats struct {
	Requests        int64            `json:"requests"`
	Fallbacks       int64            `json:"fallbacks"`
	FallbackReasons map[string]int64 `json:"fallback_reasons"`
	RowsSkipped     int64            `json:"rows_skipped"`
	UnknownCodes    int64            `json:"unknown_codes"`
}
