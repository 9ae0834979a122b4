package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StreetPull/internal/domain/models"
	"StreetPull/internal/service/ratelimit"
	"StreetPull/pkg/logger"
)

type memSeen struct {
	seen map[string]struct{}
}

func newMemSeen(ids ...string) *memSeen {
	m := &memSeen{seen: make(map[string]struct{})}
	for _, id := range ids {
		m.seen[id] = struct{}{}
	}
	return m
}

func (m *memSeen) FilterNew(_ context.Context, ids []string) ([]string, error) {
	var fresh []string
	for _, id := range ids {
		if _, ok := m.seen[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

func (m *memSeen) MarkSeen(_ context.Context, ids []string) error {
	for _, id := range ids {
		m.seen[id] = struct{}{}
	}
	return nil
}

func (m *memSeen) Close() error { return nil }

type recordingSinks struct {
	archived  map[string][]models.NewsItem
	published map[string][]models.NewsItem
	tickers   []string
	summary   *models.BatchSummary
}

func newRecordingSinks() *recordingSinks {
	return &recordingSinks{
		archived:  make(map[string][]models.NewsItem),
		published: make(map[string][]models.NewsItem),
	}
}

func (r *recordingSinks) StoreBatch(_ context.Context, symbol string, items []models.NewsItem) error {
	r.archived[symbol] = append(r.archived[symbol], items...)
	return nil
}

func (r *recordingSinks) Query(context.Context, string, time.Time, time.Time, int) ([]models.NewsItem, error) {
	return nil, nil
}

func (r *recordingSinks) Health(context.Context) error { return nil }

func (r *recordingSinks) PublishBatch(_ context.Context, symbol string, items []models.NewsItem) error {
	r.published[symbol] = append(r.published[symbol], items...)
	return nil
}

func (r *recordingSinks) Close() error { return nil }

func (r *recordingSinks) WriteTicker(req models.TickerRequest, _ *models.FetchResult) error {
	r.tickers = append(r.tickers, req.Symbol)
	return nil
}

func (r *recordingSinks) WriteSummary(s *models.BatchSummary) error {
	r.summary = s
	return nil
}

func newTestBatch(t *testing.T, src *funcSource, seen *memSeen, sinks *recordingSinks, reqs []models.TickerRequest) *Batch {
	t.Helper()
	f := NewFetcher(src, ratelimit.New(0), testLogger(t), nopMetrics{}, 100, defaultRetry())
	f.sleep = func(context.Context, time.Duration) error { return nil }
	return NewBatch(f, src, seen, sinks, sinks, sinks, testLogger(t), logger.NewRunLog("test"), reqs)
}

func TestTickerFailureDoesNotAbortBatch(t *testing.T) {
	at := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	src := &funcSource{
		headlines: func(_ context.Context, req models.TickerRequest, _ models.DateRange, limit, _ int) (*models.Page, error) {
			if req.Symbol == "BMO-CA" {
				return nil, models.NewTransientError(500, errors.New("down"))
			}
			return &models.Page{Items: []models.NewsItem{item("ok-1", at)}, Limit: limit, Total: 1}, nil
		},
	}
	sinks := newRecordingSinks()
	b := newTestBatch(t, src, newMemSeen(), sinks, []models.TickerRequest{reqFor("BMO-CA"), reqFor("RY-CA")})

	summary, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(summary.Tickers) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(summary.Tickers))
	}
	if summary.Tickers[0].Status != models.StatusExhausted {
		t.Fatalf("first ticker status = %s", summary.Tickers[0].Status)
	}
	if summary.Tickers[1].Status != models.StatusOK || summary.Tickers[1].NewsCount != 1 {
		t.Fatalf("second ticker not processed: %+v", summary.Tickers[1])
	}
	if summary.Failed() != 1 {
		t.Fatalf("failed count = %d", summary.Failed())
	}
	if len(sinks.published["RY-CA"]) != 1 {
		t.Fatalf("successful ticker not published")
	}
}

func TestSeenStoriesSkippedFromSinksButKeptInFiles(t *testing.T) {
	at := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, _ int) (*models.Page, error) {
			return &models.Page{
				Items: []models.NewsItem{item("old-1", at), item("new-1", at.Add(time.Hour))},
				Limit: limit, Total: 2,
			}, nil
		},
	}
	sinks := newRecordingSinks()
	seen := newMemSeen("old-1")
	b := newTestBatch(t, src, seen, sinks, []models.TickerRequest{reqFor("RY-CA")})

	summary, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	row := summary.Tickers[0]
	if row.NewsCount != 2 || row.SkippedSeen != 1 {
		t.Fatalf("unexpected row %+v", row)
	}
	if len(sinks.published["RY-CA"]) != 1 || sinks.published["RY-CA"][0].ID != "new-1" {
		t.Fatalf("expected only fresh story published, got %v", sinks.published["RY-CA"])
	}
	if len(sinks.tickers) != 1 {
		t.Fatalf("per-ticker files should still cover the full result")
	}
	if _, ok := seen.seen["new-1"]; !ok {
		t.Fatalf("fresh story not marked seen")
	}
}

func TestSummaryWrittenAndRetained(t *testing.T) {
	at := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, _ int) (*models.Page, error) {
			return &models.Page{Items: []models.NewsItem{item("a", at)}, Limit: limit, Total: 1}, nil
		},
		filters: func(context.Context) (*models.FilterVocabulary, error) {
			return &models.FilterVocabulary{Categories: []string{"Earnings"}}, nil
		},
	}
	sinks := newRecordingSinks()
	b := newTestBatch(t, src, newMemSeen(), sinks, []models.TickerRequest{reqFor("RY-CA")})

	summary, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sinks.summary == nil {
		t.Fatalf("summary report not written")
	}
	if b.LastSummary() != summary {
		t.Fatalf("last summary not retained")
	}
	if summary.Filters == nil || len(summary.Filters.Categories) != 1 {
		t.Fatalf("filter vocabulary missing from summary")
	}
	if summary.TotalNewsItems != 1 {
		t.Fatalf("total items = %d", summary.TotalNewsItems)
	}
}

func TestInvalidRequestFailsBeforeAnyFetch(t *testing.T) {
	src := &funcSource{
		headlines: func(context.Context, models.TickerRequest, models.DateRange, int, int) (*models.Page, error) {
			t.Fatalf("fetch attempted for invalid configuration")
			return nil, nil
		},
	}
	bad := models.TickerRequest{Symbol: "RY-CA", AssetType: "Stonk", LookbackDays: 30}
	b := newTestBatch(t, src, newMemSeen(), newRecordingSinks(), []models.TickerRequest{bad})

	_, err := b.Run(context.Background())
	var ce *models.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCancellationAbortsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &funcSource{
		headlines: func(context.Context, models.TickerRequest, models.DateRange, int, int) (*models.Page, error) {
			cancel()
			return nil, models.NewTransientError(500, errors.New("down"))
		},
	}
	sinks := newRecordingSinks()
	f := NewFetcher(src, ratelimit.New(0), testLogger(t), nopMetrics{}, 100, defaultRetry())
	f.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	b := NewBatch(f, src, newMemSeen(), sinks, sinks, sinks, testLogger(t), logger.NewRunLog("test"),
		[]models.TickerRequest{reqFor("BMO-CA"), reqFor("RY-CA")})

	_, err := b.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sinks.summary != nil {
		t.Fatalf("aborted batch must not write a summary report")
	}
	if b.LastSummary() != nil {
		t.Fatalf("aborted batch must not retain a summary")
	}
}

func TestOverlappingRunSkipped(t *testing.T) {
	at := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, _ int) (*models.Page, error) {
			once.Do(func() {
				close(entered)
				<-release
			})
			return &models.Page{Items: []models.NewsItem{item("a", at)}, Limit: limit, Total: 1}, nil
		},
	}
	b := newTestBatch(t, src, newMemSeen(), newRecordingSinks(), []models.TickerRequest{reqFor("RY-CA")})

	done := make(chan error, 1)
	go func() {
		_, _, err := b.TryRun(context.Background())
		done <- err
	}()
	<-entered

	if _, skipped, err := b.TryRun(context.Background()); err != nil || !skipped {
		t.Fatalf("trigger during a running batch: skipped=%v err=%v", skipped, err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}

	if _, skipped, err := b.TryRun(context.Background()); err != nil || skipped {
		t.Fatalf("trigger after completion: skipped=%v err=%v", skipped, err)
	}
}

func TestEmptyTickerRecordedAsEmpty(t *testing.T) {
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, _ int) (*models.Page, error) {
			return &models.Page{Limit: limit, Total: 0}, nil
		},
	}
	sinks := newRecordingSinks()
	b := newTestBatch(t, src, newMemSeen(), sinks, []models.TickerRequest{reqFor("NA-CA")})

	summary, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Tickers[0].Status != models.StatusEmpty {
		t.Fatalf("status = %s", summary.Tickers[0].Status)
	}
	if len(sinks.tickers) != 0 {
		t.Fatalf("empty result should not produce ticker files")
	}
}
