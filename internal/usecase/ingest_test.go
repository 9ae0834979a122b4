package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"StreetPull/internal/domain/models"
	"StreetPull/internal/service/ratelimit"
	"StreetPull/pkg/logger"
)

type funcSource struct {
	headlines func(ctx context.Context, req models.TickerRequest, window models.DateRange, limit, offset int) (*models.Page, error)
	filters   func(ctx context.Context) (*models.FilterVocabulary, error)
}

func (s *funcSource) Headlines(ctx context.Context, req models.TickerRequest, window models.DateRange, limit, offset int) (*models.Page, error) {
	return s.headlines(ctx, req, window, limit, offset)
}

func (s *funcSource) Filters(ctx context.Context) (*models.FilterVocabulary, error) {
	if s.filters == nil {
		return &models.FilterVocabulary{}, nil
	}
	return s.filters(ctx)
}

type nopMetrics struct{}

func (nopMetrics) RecordPageFetched(string)           {}
func (nopMetrics) RecordItems(string, int)            {}
func (nopMetrics) RecordRetry(string)                 {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordFetchDuration(string, float64) {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func item(id string, at time.Time) models.NewsItem {
	return models.NewsItem{ID: id, Headline: "story " + id, StoryTime: at}
}

func newTestFetcher(t *testing.T, src *funcSource, retry RetryPolicy) *Fetcher {
	t.Helper()
	f := NewFetcher(src, ratelimit.New(0), testLogger(t), nopMetrics{}, 100, retry)
	f.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

func defaultRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Backoff: 2 * time.Second, MaxBackoff: time.Minute}
}

func reqFor(symbol string) models.TickerRequest {
	return models.TickerRequest{Symbol: symbol, Name: symbol, AssetType: models.AssetEquity, LookbackDays: 30}
}

func window() models.DateRange {
	end := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	return models.DateRange{Start: end.AddDate(0, 0, -30), End: end}
}

func TestPaginationOffsets(t *testing.T) {
	base := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	var offsets []int
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, offset int) (*models.Page, error) {
			offsets = append(offsets, offset)
			n := 100
			if offset == 200 {
				n = 50
			}
			items := make([]models.NewsItem, n)
			for i := range items {
				items[i] = item(fmt.Sprintf("s-%d", offset+i), base.Add(-time.Duration(offset+i)*time.Minute))
			}
			return &models.Page{Items: items, Offset: offset, Limit: limit, Total: 250}, nil
		},
	}

	f := newTestFetcher(t, src, defaultRetry())
	res, err := f.Fetch(context.Background(), reqFor("RY-CA"), window())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(offsets) != 3 || offsets[0] != 0 || offsets[1] != 100 || offsets[2] != 200 {
		t.Fatalf("expected offsets [0 100 200], got %v", offsets)
	}
	if len(res.Items) != 250 || res.Total != 250 {
		t.Fatalf("expected 250 items, got %d (total %d)", len(res.Items), res.Total)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", res.Warnings)
	}
}

func TestEmptyPageTerminatesDespiteTotal(t *testing.T) {
	calls := 0
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, offset int) (*models.Page, error) {
			calls++
			if offset == 0 {
				return &models.Page{
					Items: []models.NewsItem{item("a", time.Now())},
					Limit: limit, Total: 500,
				}, nil
			}
			// inconsistent total: no more items
			return &models.Page{Limit: limit, Total: 500}, nil
		},
	}

	f := newTestFetcher(t, src, defaultRetry())
	res, err := f.Fetch(context.Background(), reqFor("RY-CA"), window())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected soft warning for short result")
	}
}

func TestDedupFirstOccurrenceWins(t *testing.T) {
	at := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, offset int) (*models.Page, error) {
			if offset == 0 {
				first := item("dup", at)
				first.Headline = "first occurrence"
				items := []models.NewsItem{first}
				for i := 0; i < 99; i++ {
					items = append(items, item(fmt.Sprintf("a-%d", i), at))
				}
				return &models.Page{Items: items, Limit: limit, Total: 101}, nil
			}
			second := item("dup", at)
			second.Headline = "second occurrence"
			return &models.Page{Items: []models.NewsItem{second}, Limit: limit, Total: 101}, nil
		},
	}

	f := newTestFetcher(t, src, defaultRetry())
	res, err := f.Fetch(context.Background(), reqFor("RY-CA"), window())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	count := 0
	for _, it := range res.Items {
		if it.ID == "dup" {
			count++
			if it.Headline != "first occurrence" {
				t.Fatalf("later duplicate replaced first occurrence")
			}
		}
	}
	if count != 1 {
		t.Fatalf("duplicate id appeared %d times", count)
	}
	// the dropped duplicate accounts for the shortfall against the total
	if len(res.Warnings) != 0 {
		t.Fatalf("dedup shortfall flagged as incomplete result: %v", res.Warnings)
	}
}

func TestCancellationDuringBackoffPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &funcSource{
		headlines: func(context.Context, models.TickerRequest, models.DateRange, int, int) (*models.Page, error) {
			return nil, models.NewTransientError(500, errors.New("down"))
		},
	}

	f := newTestFetcher(t, src, defaultRetry())
	f.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := f.Fetch(ctx, reqFor("RY-CA"), window())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if models.IsTransient(err) || models.IsExhausted(err) {
		t.Fatalf("cancellation misclassified as fetch failure: %v", err)
	}
}

func TestOrderingByStoryTimeDescending(t *testing.T) {
	day := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		day.Add(10 * time.Hour),
		day.Add(9 * time.Hour),
		day.Add(9*time.Hour + 30*time.Minute),
	}
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, _ int) (*models.Page, error) {
			return &models.Page{
				Items: []models.NewsItem{item("a", times[0]), item("b", times[1]), item("c", times[2])},
				Limit: limit, Total: 3,
			}, nil
		},
	}

	f := newTestFetcher(t, src, defaultRetry())
	res, err := f.Fetch(context.Background(), reqFor("RY-CA"), window())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []string{"a", "c", "b"} // 10:00, 09:30, 09:00
	for i, id := range want {
		if res.Items[i].ID != id {
			t.Fatalf("position %d: want %s got %s", i, id, res.Items[i].ID)
		}
	}
	if !res.Latest.Equal(times[0]) || !res.Earliest.Equal(times[1]) {
		t.Fatalf("metadata range wrong: earliest %v latest %v", res.Earliest, res.Latest)
	}
}

func TestRetryBackoffDelays(t *testing.T) {
	attempts := 0
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, _ int) (*models.Page, error) {
			attempts++
			if attempts <= 2 {
				return nil, models.NewTransientError(503, errors.New("unavailable"))
			}
			return &models.Page{Items: []models.NewsItem{item("a", time.Now())}, Limit: limit, Total: 1}, nil
		},
	}

	f := newTestFetcher(t, src, RetryPolicy{MaxAttempts: 5, Backoff: 2 * time.Second, MaxBackoff: time.Minute})
	var slept []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if _, err := f.Fetch(context.Background(), reqFor("RY-CA"), window()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(slept) != 2 || slept[0] != 2*time.Second || slept[1] != 4*time.Second {
		t.Fatalf("expected backoff [2s 4s], got %v", slept)
	}
}

func TestBackoffCapped(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, Backoff: 2 * time.Second, MaxBackoff: 10 * time.Second}
	if d := p.Delay(0); d != 2*time.Second {
		t.Fatalf("delay(0) = %v", d)
	}
	if d := p.Delay(2); d != 8*time.Second {
		t.Fatalf("delay(2) = %v", d)
	}
	if d := p.Delay(5); d != 10*time.Second {
		t.Fatalf("delay(5) not capped: %v", d)
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	attempts := 0
	src := &funcSource{
		headlines: func(context.Context, models.TickerRequest, models.DateRange, int, int) (*models.Page, error) {
			attempts++
			return nil, models.NewTransientError(500, errors.New("boom"))
		},
	}

	f := newTestFetcher(t, src, defaultRetry())
	_, err := f.Fetch(context.Background(), reqFor("BMO-CA"), window())
	if err == nil {
		t.Fatalf("expected error")
	}
	var ee *models.ExhaustedError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExhaustedError, got %T: %v", err, err)
	}
	if ee.Attempts != 5 || attempts != 5 {
		t.Fatalf("expected 5 attempts, got %d (recorded %d)", attempts, ee.Attempts)
	}
}

func TestPermanentErrorNotRetried(t *testing.T) {
	attempts := 0
	src := &funcSource{
		headlines: func(context.Context, models.TickerRequest, models.DateRange, int, int) (*models.Page, error) {
			attempts++
			return nil, models.NewPermanentError(400, errors.New("bad filter"))
		},
	}

	f := newTestFetcher(t, src, defaultRetry())
	_, err := f.Fetch(context.Background(), reqFor("RY-CA"), window())
	if err == nil || models.IsExhausted(err) {
		t.Fatalf("expected immediate permanent failure, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("permanent error retried %d times", attempts)
	}
}

func TestCategoriesSeenCollected(t *testing.T) {
	src := &funcSource{
		headlines: func(_ context.Context, _ models.TickerRequest, _ models.DateRange, limit, _ int) (*models.Page, error) {
			a := item("a", time.Now())
			a.Categories = []string{"Earnings", "Guidance"}
			b := item("b", time.Now())
			b.Categories = []string{"Earnings"}
			return &models.Page{Items: []models.NewsItem{a, b}, Limit: limit, Total: 2}, nil
		},
	}

	f := newTestFetcher(t, src, defaultRetry())
	res, err := f.Fetch(context.Background(), reqFor("RY-CA"), window())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(res.CategoriesSeen) != 2 || res.CategoriesSeen[0] != "Earnings" || res.CategoriesSeen[1] != "Guidance" {
		t.Fatalf("unexpected categories %v", res.CategoriesSeen)
	}
}
