package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/textmine/knowledge-extractor/internal/search"
	"github.com/textmine/knowledge-extractor/pkg/config"
)

// fakeStore is an in-memory resultStore standing in for Redis.
type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = string(value.([]byte))
	return nil
}

func (f *fakeStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	n := int64(len(f.data))
	f.data = make(map[string]string)
	return n, nil
}

func newTestCache() *QueryCache {
	return newWithStore(newFakeStore(), config.RedisConfig{CacheTTL: time.Minute})
}

func sampleResult(term string) *search.Result {
	return &search.Result{Term: term, Total: 0}
}

func TestGetOrComputeCountsMissOnce(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	result, cached, err := c.GetOrCompute(ctx, "kafka", 25, func() (*search.Result, error) {
		return sampleResult("kafka"), nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute returned %v", err)
	}
	if cached {
		t.Fatal("first call reported cached=true")
	}
	if result.Term != "kafka" {
		t.Fatalf("result term = %q, want kafka", result.Term)
	}

	hits, misses := c.Stats()
	if hits != 0 || misses != 1 {
		t.Fatalf("after one computed query: hits=%d misses=%d, want 0/1", hits, misses)
	}
}

func TestGetOrComputeCountsHitOnRepeat(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	compute := func() (*search.Result, error) { return sampleResult("redis"), nil }
	if _, _, err := c.GetOrCompute(ctx, "redis", 25, compute); err != nil {
		t.Fatalf("first call returned %v", err)
	}

	_, cached, err := c.GetOrCompute(ctx, "redis", 25, func() (*search.Result, error) {
		t.Fatal("computeFn must not run on a cache hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("second call returned %v", err)
	}
	if !cached {
		t.Fatal("second call reported cached=false")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("after miss+hit: hits=%d misses=%d, want 1/1", hits, misses)
	}
}

func TestInvalidateClearsEntries(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	compute := func() (*search.Result, error) { return sampleResult("postgres"), nil }
	if _, _, err := c.GetOrCompute(ctx, "postgres", 25, compute); err != nil {
		t.Fatalf("seed call returned %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate returned %v", err)
	}

	recomputed := false
	if _, _, err := c.GetOrCompute(ctx, "postgres", 25, func() (*search.Result, error) {
		recomputed = true
		return sampleResult("postgres"), nil
	}); err != nil {
		t.Fatalf("post-invalidate call returned %v", err)
	}
	if !recomputed {
		t.Fatal("computeFn did not run after Invalidate")
	}
}
