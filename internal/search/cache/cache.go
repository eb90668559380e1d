// Package cache provides a Redis-backed query cache for search results with
// singleflight deduplication of concurrent misses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/textmine/knowledge-extractor/internal/search"
	"github.com/textmine/knowledge-extractor/pkg/config"
	pkgredis "github.com/textmine/knowledge-extractor/pkg/redis"
)

const keyPrefix = "search:"

// resultStore is the subset of the Redis client the cache needs; tests
// substitute an in-memory fake.
type resultStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache caches search results in Redis, keyed by the normalized term
// and limit. Concurrent misses for the same key collapse into one store
// query via singleflight.
type QueryCache struct {
	store  resultStore
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return newWithStore(client, cfg)
}

func newWithStore(store resultStore, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		store:  store,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for the term, if present, and counts the
// lookup as a hit or miss.
func (c *QueryCache) Get(ctx context.Context, term string, limit int) (*search.Result, bool) {
	result, ok := c.lookup(ctx, term, limit)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return result, ok
}

// lookup probes Redis without touching the hit/miss counters. Redis errors
// are treated as absent entries.
func (c *QueryCache) lookup(ctx context.Context, term string, limit int) (*search.Result, bool) {
	key := c.buildKey(term, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var result search.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	c.logger.Debug("cache hit", "term", term, "key", key)
	return &result, true
}

// Set stores the result under the term's key with the configured TTL.
// Failures are logged, never surfaced.
func (c *QueryCache) Set(ctx context.Context, term string, limit int, result *search.Result) {
	key := c.buildKey(term, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and caches it. The
// boolean reports whether the value came from cache. Each call counts
// exactly one hit or one miss, even when the singleflight re-probe finds
// the key filled by a concurrent caller.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	term string,
	limit int,
	computeFn func() (*search.Result, error),
) (*search.Result, bool, error) {
	if result, ok := c.Get(ctx, term, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(term, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the cache while we waited; the
		// miss was already counted above.
		if result, ok := c.lookup(ctx, term, limit); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, term, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*search.Result), false, nil
}

// Invalidate removes every cached search result. Called after bulk imports
// or manual data fixes.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counts since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(term string, limit int) string {
	raw := fmt.Sprintf("%s:limit=%d", normalizeTerm(term), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
