package repository

import (
	"context"
	"time"

	"StreetPull/internal/domain/models"
)

// HeadlinesSource is one paginated query against the vendor headlines endpoint.
type HeadlinesSource interface {
	Headlines(ctx context.Context, req models.TickerRequest, window models.DateRange, limit, offset int) (*models.Page, error)
	Filters(ctx context.Context) (*models.FilterVocabulary, error)
}

// Publisher fans fetched news out to a message backend.
type Publisher interface {
	PublishBatch(ctx context.Context, symbol string, items []models.NewsItem) error
	Close() error
}

// Archive is long-term storage for normalized news.
type Archive interface {
	StoreBatch(ctx context.Context, symbol string, items []models.NewsItem) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.NewsItem, error)
	Health(ctx context.Context) error
	Close() error
}

// SeenStore remembers story ids across runs so reruns skip already-delivered stories.
type SeenStore interface {
	// FilterNew returns the subset of ids not seen before, in input order.
	FilterNew(ctx context.Context, ids []string) ([]string, error)
	MarkSeen(ctx context.Context, ids []string) error
	Close() error
}

// ReportWriter produces the per-ticker documents and the cross-ticker summary.
type ReportWriter interface {
	WriteTicker(req models.TickerRequest, res *models.FetchResult) error
	WriteSummary(summary *models.BatchSummary) error
}

// Metrics records operational counters for the batch.
type Metrics interface {
	RecordPageFetched(symbol string)
	RecordItems(symbol string, n int)
	RecordRetry(symbol string)
	RecordError(kind string)
	RecordFetchDuration(symbol string, seconds float64)
}
