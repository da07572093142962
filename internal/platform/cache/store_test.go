package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestStore_ZeroTTLKeepsEntries(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	ctx := context.Background()

	s.Set(ctx, "policy", "allow")
	got, ok := s.Get(ctx, "policy")
	if !ok || got.(string) != "allow" {
		t.Fatalf("expected cached value, got=%v ok=%v", got, ok)
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	t.Parallel()

	s := NewStore(10 * time.Millisecond)
	ctx := context.Background()

	s.Set(ctx, "k", 1)
	time.Sleep(25 * time.Millisecond)
	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestStore_GetOrLoadRunsLoaderOnce(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	ctx := context.Background()
	loads := 0

	for i := 0; i < 3; i++ {
		value, err := s.GetOrLoad(ctx, "robots", func(context.Context) (any, error) {
			loads++
			return []string{"/player/"}, nil
		})
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if len(value.([]string)) != 1 {
			t.Fatalf("unexpected value %v", value)
		}
	}

	if loads != 1 {
		t.Fatalf("expected a single load, got %d", loads)
	}
}

func TestStore_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	ctx := context.Background()
	loads := 0

	loader := func(context.Context) (any, error) {
		loads++
		if loads == 1 {
			return nil, fmt.Errorf("boom")
		}
		return "ok", nil
	}

	if _, err := s.GetOrLoad(ctx, "k", loader); err == nil {
		t.Fatalf("expected first load to fail")
	}
	value, err := s.GetOrLoad(ctx, "k", loader)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if value.(string) != "ok" || loads != 2 {
		t.Fatalf("expected retry after failed load, value=%v loads=%d", value, loads)
	}
}
