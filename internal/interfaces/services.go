package interfaces

import (
	"context"

	"github.com/bobmcallan/stockreplay/internal/models"
)

// SnapshotService builds market mover snapshots
type SnapshotService interface {
	// GetSnapshot always returns a non-empty snapshot, live or fallback
	GetSnapshot(ctx context.Context, kind models.SnapshotKind) *models.Snapshot

	// Stats returns process-lifetime counters
	Stats() models.SnapshotStats
}

// HistoryService serves candle history and charts
type HistoryService interface {
	GetHistory(ctx context.Context, symbol string, query models.HistoryQuery) (*models.StockHistory, error)
	RenderChart(ctx context.Context, symbol string, query models.HistoryQuery) ([]byte, error)
}

// NewsService searches and summarizes stock news
type NewsService interface {
	FetchNews(ctx context.Context, req models.NewsRequest) (*models.NewsResult, error)
	Summarize(ctx context.Context, symbol string) (*models.NewsSummary, error)
}
