package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"StreetPull/internal/domain/models"
	drepo "StreetPull/internal/domain/repository"
	"StreetPull/internal/service/ratelimit"
	"StreetPull/pkg/logger"
)

// attemptState drives the retry loop for a single page request.
type attemptState int

const (
	stateAttempting attemptState = iota
	stateSuccess
	stateTransientFail
	statePermanentFail
)

// RetryPolicy bounds retries for one page request. Delay for attempt n is
// Backoff * 2^n, capped at MaxBackoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// Delay returns the backoff before retrying after failed attempt n (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.Backoff << uint(attempt)
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// Fetcher runs the paginated, deduplicating ingestion loop for one ticker.
type Fetcher struct {
	source    drepo.HeadlinesSource
	pacer     *ratelimit.Pacer
	log       *logger.Logger
	metrics   drepo.Metrics
	pageLimit int
	retry     RetryPolicy

	// sleep is replaceable in tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFetcher(source drepo.HeadlinesSource, pacer *ratelimit.Pacer, log *logger.Logger, metrics drepo.Metrics, pageLimit int, retry RetryPolicy) *Fetcher {
	if pageLimit <= 0 || pageLimit > 100 {
		pageLimit = 100
	}
	return &Fetcher{
		source:    source,
		pacer:     pacer,
		log:       log,
		metrics:   metrics,
		pageLimit: pageLimit,
		retry:     retry,
		sleep:     sleepCtx,
	}
}

// Fetch aggregates all pages of news for req within window into a single
// deduplicated FetchResult ordered by story time descending. Transient page
// failures are retried with exponential backoff; running out of attempts
// fails the whole ticker with *models.ExhaustedError.
func (f *Fetcher) Fetch(ctx context.Context, req models.TickerRequest, window models.DateRange) (*models.FetchResult, error) {
	start := time.Now()

	res := &models.FetchResult{Symbol: req.Symbol}
	seen := make(map[string]struct{})
	categories := make(map[string]struct{})

	offset := 0
	total := 0
	dupes := 0
	for {
		page, err := f.fetchPage(ctx, req, window, offset)
		if err != nil {
			f.metrics.RecordError(errorKind(err))
			return nil, err
		}
		f.metrics.RecordPageFetched(req.Symbol)

		total = page.Total
		for _, item := range page.Items {
			if _, dup := seen[item.ID]; dup {
				// first occurrence wins
				dupes++
				continue
			}
			seen[item.ID] = struct{}{}
			res.Items = append(res.Items, item)
			for _, c := range item.Categories {
				categories[c] = struct{}{}
			}
		}

		// Zero items terminates even when the reported total says otherwise;
		// vendor totals have been observed to disagree with reality.
		if len(page.Items) == 0 {
			break
		}
		offset += f.pageLimit
		if offset >= total {
			break
		}
	}

	res.Total = total
	// Duplicates dropped across pages legitimately shrink the result, so they
	// count toward the reported total before calling the result short.
	if len(res.Items)+dupes != total {
		warn := fmt.Sprintf("source reported %d items but returned %d (possible access restriction)", total, len(res.Items))
		res.Warnings = append(res.Warnings, warn)
		f.log.Warn("incomplete result", logger.String("symbol", req.Symbol), logger.Int("reported", total), logger.Int("returned", len(res.Items)))
	}

	res.SortByStoryTimeDesc()
	if n := len(res.Items); n > 0 {
		res.Latest = res.Items[0].StoryTime
		res.Earliest = res.Items[n-1].StoryTime
	}
	res.CategoriesSeen = sortedKeys(categories)

	f.metrics.RecordItems(req.Symbol, len(res.Items))
	f.metrics.RecordFetchDuration(req.Symbol, time.Since(start).Seconds())
	return res, nil
}

// fetchPage issues one page request, retrying transient failures until the
// retry budget runs out.
func (f *Fetcher) fetchPage(ctx context.Context, req models.TickerRequest, window models.DateRange, offset int) (*models.Page, error) {
	var lastErr error

	state := stateAttempting
	for attempt := 0; state != stateSuccess; attempt++ {
		// Context errors propagate unwrapped so cancellation aborts the batch
		// instead of counting as a ticker failure.
		if err := f.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := f.source.Headlines(ctx, req, window, f.pageLimit, offset)
		switch {
		case err == nil:
			state = stateSuccess
			return page, nil
		case models.IsTransient(err):
			state = stateTransientFail
			lastErr = err
		default:
			state = statePermanentFail
			return nil, err
		}

		if attempt+1 >= f.retry.MaxAttempts {
			return nil, &models.ExhaustedError{
				Symbol:   req.Symbol,
				Attempts: attempt + 1,
				Err:      lastErr,
			}
		}

		delay := f.retry.Delay(attempt)
		f.metrics.RecordRetry(req.Symbol)
		f.log.Warn("page request failed, retrying",
			logger.String("symbol", req.Symbol),
			logger.Int("offset", offset),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", delay),
			logger.Error(err),
		)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
		state = stateAttempting
	}
	return nil, lastErr // unreachable
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case models.IsExhausted(err):
		return "exhausted"
	case models.IsTransient(err):
		return "transient"
	default:
		return "permanent"
	}
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
