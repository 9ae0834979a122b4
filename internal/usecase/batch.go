package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StreetPull/internal/domain/models"
	drepo "StreetPull/internal/domain/repository"
	"StreetPull/pkg/logger"
)

// Batch runs the full sequential ingestion over all monitored institutions.
// One ticker's failure never aborts the batch; it is recorded in the summary
// and processing moves on.
type Batch struct {
	fetcher  *Fetcher
	source   drepo.HeadlinesSource
	seen     drepo.SeenStore
	archive  drepo.Archive
	pub      drepo.Publisher
	reports  drepo.ReportWriter
	log      *logger.Logger
	runlog   *logger.RunLog
	requests []models.TickerRequest

	// runMu serializes runs; the ingestion model is strictly sequential.
	runMu sync.Mutex

	mu   sync.RWMutex
	last *models.BatchSummary
}

func NewBatch(
	fetcher *Fetcher,
	source drepo.HeadlinesSource,
	seen drepo.SeenStore,
	archive drepo.Archive,
	pub drepo.Publisher,
	reports drepo.ReportWriter,
	log *logger.Logger,
	runlog *logger.RunLog,
	requests []models.TickerRequest,
) *Batch {
	return &Batch{
		fetcher:  fetcher,
		source:   source,
		seen:     seen,
		archive:  archive,
		pub:      pub,
		reports:  reports,
		log:      log,
		runlog:   runlog,
		requests: requests,
	}
}

// LastSummary returns the summary of the most recent completed run.
func (b *Batch) LastSummary() *models.BatchSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// TryRun runs the batch unless a previous run is still in progress, in which
// case it reports skipped without touching the source. Used by the scheduler
// so a slow run never overlaps the next trigger.
func (b *Batch) TryRun(ctx context.Context) (summary *models.BatchSummary, skipped bool, err error) {
	if !b.runMu.TryLock() {
		return nil, true, nil
	}
	defer b.runMu.Unlock()

	summary, err = b.run(ctx)
	return summary, false, err
}

// Run processes every configured ticker sequentially and writes the
// cross-ticker summary. It blocks if another run is in progress. The returned
// error covers configuration problems, cancellation and summary writing;
// per-ticker failures live in the summary rows.
func (b *Batch) Run(ctx context.Context) (*models.BatchSummary, error) {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	return b.run(ctx)
}

func (b *Batch) run(ctx context.Context) (*models.BatchSummary, error) {
	// Request problems are configuration mistakes; fail before any network
	// activity rather than burning the retry budget per ticker.
	for _, req := range b.requests {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("ticker %s: %w", req.Symbol, err)
		}
	}

	now := time.Now()
	summary := &models.BatchSummary{Started: now}
	if len(b.requests) > 0 {
		summary.LookbackDays = b.requests[0].LookbackDays
	}

	b.log.Info("batch started", logger.Int("tickers", len(b.requests)))

	// Filter vocabularies are informational; a failure here is a warning,
	// not a batch failure.
	if vocab, err := b.source.Filters(ctx); err != nil {
		b.log.Warn("filter vocabulary unavailable", logger.Error(err))
	} else {
		summary.Filters = vocab
	}

	for i, req := range b.requests {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		b.log.Info("processing ticker",
			logger.String("symbol", req.Symbol),
			logger.Int("position", i+1),
			logger.Int("of", len(b.requests)),
		)
		row, err := b.processTicker(ctx, req)
		if err != nil {
			return nil, err
		}
		summary.Add(row)
	}

	summary.Finished = time.Now()

	if err := b.reports.WriteSummary(summary); err != nil {
		b.runlog.RecordError("summary report failed", "summary_report", map[string]interface{}{"error": err.Error()})
		return summary, fmt.Errorf("write summary: %w", err)
	}

	b.mu.Lock()
	b.last = summary
	b.mu.Unlock()

	b.log.Info("batch complete",
		logger.Int("total_news_items", summary.TotalNewsItems),
		logger.Int("failed_tickers", summary.Failed()),
	)
	return summary, nil
}

// processTicker returns a non-nil error only for context cancellation, which
// aborts the whole batch; every other failure becomes a summary row.
func (b *Batch) processTicker(ctx context.Context, req models.TickerRequest) (models.TickerSummary, error) {
	window := req.LookbackRange(time.Now())
	row := models.TickerSummary{
		Ticker:          req.Symbol,
		InstitutionName: req.Name,
		DateRange: fmt.Sprintf("%s to %s",
			window.Start.Format("2006-01-02"), window.End.Format("2006-01-02")),
	}

	res, err := b.fetcher.Fetch(ctx, req, window)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return row, err
		}
		if models.IsExhausted(err) {
			row.Status = models.StatusExhausted
		} else {
			row.Status = models.StatusFailed
		}
		row.Error = err.Error()
		b.log.Error("ticker fetch failed", logger.String("symbol", req.Symbol), logger.Error(err))
		b.runlog.RecordError("ticker fetch failed", "api_query", map[string]interface{}{
			"symbol": req.Symbol,
			"error":  err.Error(),
		})
		return row, nil
	}

	row.NewsCount = len(res.Items)
	row.PrimaryMentions = res.PrimaryMentions()
	row.Categories = res.CategoriesSeen
	if len(res.Items) == 0 {
		row.Status = models.StatusEmpty
		b.log.Info("no news found", logger.String("symbol", req.Symbol))
		return row, nil
	}

	row.Status = models.StatusOK
	row.EarliestNews = res.Earliest.Format(time.RFC3339)
	row.LatestNews = res.Latest.Format(time.RFC3339)

	fresh, skipped := b.splitSeen(ctx, res)
	row.SkippedSeen = skipped

	if err := b.reports.WriteTicker(req, res); err != nil {
		b.log.Error("file write failed", logger.String("symbol", req.Symbol), logger.Error(err))
		b.runlog.RecordError("file write failed", "save_news", map[string]interface{}{
			"symbol": req.Symbol,
			"error":  err.Error(),
		})
	}

	if len(fresh) > 0 {
		if err := b.archive.StoreBatch(ctx, req.Symbol, fresh); err != nil {
			b.log.Error("archive write failed", logger.String("symbol", req.Symbol), logger.Error(err))
			b.runlog.RecordError("archive write failed", "archive", map[string]interface{}{
				"symbol": req.Symbol,
				"error":  err.Error(),
			})
		}
		if err := b.pub.PublishBatch(ctx, req.Symbol, fresh); err != nil {
			b.log.Error("publish failed", logger.String("symbol", req.Symbol), logger.Error(err))
			b.runlog.RecordError("publish failed", "publish", map[string]interface{}{
				"symbol": req.Symbol,
				"error":  err.Error(),
			})
		}
		ids := make([]string, len(fresh))
		for i := range fresh {
			ids[i] = fresh[i].ID
		}
		if err := b.seen.MarkSeen(ctx, ids); err != nil {
			b.log.Warn("seen store update failed", logger.String("symbol", req.Symbol), logger.Error(err))
		}
	}

	b.log.Info("ticker complete",
		logger.String("symbol", req.Symbol),
		logger.Int("items", row.NewsCount),
		logger.Int("primary", row.PrimaryMentions),
		logger.Int("skipped_seen", skipped),
	)
	return row, nil
}

// splitSeen partitions result items into not-yet-seen stories and a count of
// previously delivered ones. A seen-store failure degrades to treating
// everything as new rather than dropping stories.
func (b *Batch) splitSeen(ctx context.Context, res *models.FetchResult) ([]models.NewsItem, int) {
	ids := make([]string, len(res.Items))
	byID := make(map[string]models.NewsItem, len(res.Items))
	for i := range res.Items {
		ids[i] = res.Items[i].ID
		byID[res.Items[i].ID] = res.Items[i]
	}

	freshIDs, err := b.seen.FilterNew(ctx, ids)
	if err != nil {
		b.log.Warn("seen store lookup failed", logger.String("symbol", res.Symbol), logger.Error(err))
		return res.Items, 0
	}

	fresh := make([]models.NewsItem, 0, len(freshIDs))
	for _, id := range freshIDs {
		fresh = append(fresh, byID[id])
	}
	return fresh, len(res.Items) - len(fresh)
}
