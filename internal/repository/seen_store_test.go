package repository

import (
	"context"
	"testing"
	"time"

	"StreetPull/pkg/cache"
)

func TestSeenStoreFilterAndMark(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCachedSeenStore(mc, time.Hour)

	ctx := context.Background()
	ids := []string{"s-1", "s-2", "s-3"}

	fresh, err := store.FilterNew(ctx, ids)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(fresh) != 3 {
		t.Fatalf("expected all fresh on empty store, got %v", fresh)
	}

	if err := store.MarkSeen(ctx, []string{"s-1", "s-3"}); err != nil {
		t.Fatalf("mark: %v", err)
	}

	fresh, err = store.FilterNew(ctx, ids)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(fresh) != 1 || fresh[0] != "s-2" {
		t.Fatalf("expected only s-2 fresh, got %v", fresh)
	}
}

func TestSeenStoreEmptyInput(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCachedSeenStore(mc, time.Hour)

	fresh, err := store.FilterNew(context.Background(), nil)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("expected no fresh ids, got %v", fresh)
	}
	if err := store.MarkSeen(context.Background(), nil); err != nil {
		t.Fatalf("mark: %v", err)
	}
}
