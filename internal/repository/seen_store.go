package repository

import (
	"context"
	"time"

	"StreetPull/pkg/cache"
)

// CachedSeenStore tracks story ids delivered in earlier runs so downstream
// sinks receive each story at most once across runs. Backed by any cache
// implementation; Redis in daemon mode, in-memory for local runs.
type CachedSeenStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCachedSeenStore creates a seen-story store. Entries expire after ttl so
// the keyspace does not grow unbounded; a story older than the lookback
// window cannot reappear in a fetch anyway.
func NewCachedSeenStore(c cache.Service, ttl time.Duration) *CachedSeenStore {
	return &CachedSeenStore{cache: c, ttl: ttl}
}

func seenKey(id string) string {
	return cache.GenerateKey("seen", id)
}

// FilterNew returns the subset of ids not yet marked as seen, preserving
// input order.
func (s *CachedSeenStore) FilterNew(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = seenKey(id)
	}

	found, err := s.cache.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	fresh := make([]string, 0, len(ids))
	for i, id := range ids {
		if _, ok := found[keys[i]]; !ok {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

// MarkSeen records ids as delivered.
func (s *CachedSeenStore) MarkSeen(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	values := make(map[string]interface{}, len(ids))
	for _, id := range ids {
		values[seenKey(id)] = "1"
	}
	return s.cache.MSet(ctx, values, s.ttl)
}

func (s *CachedSeenStore) Close() error {
	if closer, ok := s.cache.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
