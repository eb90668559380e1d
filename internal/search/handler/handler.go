// Package handler exposes the searcher's HTTP endpoints: topic/keyword
// search over stored analyses plus cache stats and invalidation.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/textmine/knowledge-extractor/internal/analytics"
	"github.com/textmine/knowledge-extractor/internal/search"
	"github.com/textmine/knowledge-extractor/internal/search/cache"
	"github.com/textmine/knowledge-extractor/internal/storage"
	apperrors "github.com/textmine/knowledge-extractor/pkg/errors"
	"github.com/textmine/knowledge-extractor/pkg/logger"
	"github.com/textmine/knowledge-extractor/pkg/metrics"
	"github.com/textmine/knowledge-extractor/pkg/middleware"
)

// EventTracker receives search analytics events keyed by event type.
// *collector.BatchCollector satisfies it.
type EventTracker interface {
	Track(key string, value any)
}

type Handler struct {
	store        storage.Store
	cache        *cache.QueryCache
	tracker      EventTracker
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates a search Handler. Cache, tracker, and metrics may each be nil;
// the handler degrades to uncached, untracked operation.
func New(store storage.Store, queryCache *cache.QueryCache, tracker EventTracker, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 25
	}
	if maxResults <= 0 {
		maxResults = 100
	}
	return &Handler{
		store:        store,
		cache:        queryCache,
		tracker:      tracker,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?topic=term&limit=N. The term is matched
// against both the topics and keywords of stored analyses; an absent term
// returns the most recent analyses.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	term := strings.TrimSpace(r.URL.Query().Get("topic"))

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	var result *search.Result
	var err error
	cacheHit := false

	compute := func() (*search.Result, error) {
		rows, err := h.store.SearchByTerm(ctx, term, limit)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []storage.Analysis{}
		}
		return &search.Result{Term: term, Total: len(rows), Results: rows}, nil
	}

	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, term, limit, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search failed", "term", term, "error", err)
		h.observe("error", start, cacheHit)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"term", term,
		"results", result.Total,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)

	resultType := "miss"
	switch {
	case cacheHit:
		resultType = "hit"
	case result.Total == 0:
		resultType = "zero_result"
	}
	h.observe(resultType, start, cacheHit)

	if h.tracker != nil {
		h.tracker.Track("search", analytics.SearchEvent{
			Type:      analytics.EventSearch,
			Term:      term,
			Results:   result.Total,
			CacheHit:  cacheHit,
			LatencyMs: latencyMs,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) observe(resultType string, start time.Time, cacheHit bool) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	if cacheHit {
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
