package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum delay between consecutive requests to one
// endpoint, regardless of whether the previous request succeeded. An optional
// checkpoint pause adds a longer sleep every N requests.
type Pacer struct {
	delay          time.Duration
	longPauseEvery int
	longPause      time.Duration

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	last  time.Time
	count int
}

func New(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, sleep: sleepCtx}
}

// WithCheckpoint adds a long pause every n requests. n <= 0 disables it.
func (p *Pacer) WithCheckpoint(n int, pause time.Duration) *Pacer {
	p.longPauseEvery = n
	p.longPause = pause
	return p
}

// Wait blocks until the next request is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	var d time.Duration
	if !p.last.IsZero() {
		if elapsed := now.Sub(p.last); elapsed < p.delay {
			d = p.delay - elapsed
		}
	}
	p.count++
	if p.longPauseEvery > 0 && p.count%p.longPauseEvery == 0 {
		d += p.longPause
	}
	p.last = now.Add(d)
	p.mu.Unlock()

	if d <= 0 {
		return nil
	}
	return p.sleep(ctx, d)
}

// Requests returns the number of Wait calls so far.
func (p *Pacer) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
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
