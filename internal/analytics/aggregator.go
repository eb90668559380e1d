package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/textmine/knowledge-extractor/pkg/kafka"
)

// AggregatedStats is the rolling usage summary served by the analytics
// service and persisted as snapshots.
type AggregatedStats struct {
	TotalAnalyses      int64            `json:"total_analyses"`
	TotalSearches      int64            `json:"total_searches"`
	LLMFallbacks       int64            `json:"llm_fallbacks"`
	CacheHits          int64            `json:"cache_hits"`
	CacheMisses        int64            `json:"cache_misses"`
	ZeroResultSearches int64            `json:"zero_result_searches"`
	SentimentCounts    map[string]int64 `json:"sentiment_counts"`
	AvgConfidence      float64          `json:"avg_confidence"`
	AvgAnalysisMs      float64          `json:"avg_analysis_ms"`
	P50AnalysisMs      int64            `json:"p50_analysis_ms"`
	P95AnalysisMs      int64            `json:"p95_analysis_ms"`
	P99AnalysisMs      int64            `json:"p99_analysis_ms"`
	TopTopics          []TermCount      `json:"top_topics"`
	TopKeywords        []TermCount      `json:"top_keywords"`
	TopSearchTerms     []TermCount      `json:"top_search_terms"`
	AnalysesPerMinute  float64          `json:"analyses_per_minute"`
}

// TermCount pairs a topic, keyword, or search term with its tally.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Aggregator consumes events from Kafka and maintains in-memory counters.
type Aggregator struct {
	mu              sync.RWMutex
	totalAnalyses   atomic.Int64
	totalSearches   atomic.Int64
	llmFallbacks    atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	zeroResults     atomic.Int64
	latencies       []int64
	confidenceSum   float64
	sentimentCounts map[string]int64
	topicCounts     map[string]int64
	keywordCounts   map[string]int64
	termCounts      map[string]int64
	startTime       time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty aggregator. Feed it by registering
// HandleEvent(agg) on one or more Kafka consumers.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:       make([]int64, 0, 10000),
		sentimentCounts: make(map[string]int64),
		topicCounts:     make(map[string]int64),
		keywordCounts:   make(map[string]int64),
		termCounts:      make(map[string]int64),
		startTime:       time.Now(),
		logger:          slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka handler that dispatches on the event's type
// field. Undecodable events are logged and skipped, never retried.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventAnalysis:
			event, err := kafka.DecodeJSON[AnalysisEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode analysis event", "error", err)
				return nil
			}
			agg.RecordAnalysis(event)
		case EventSearch:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.RecordSearch(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type)
		}
		return nil
	}
}

// RecordAnalysis folds one analysis event into the counters.
func (a *Aggregator) RecordAnalysis(event AnalysisEvent) {
	a.totalAnalyses.Add(1)
	if event.LLMFallback {
		a.llmFallbacks.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.confidenceSum += event.Confidence
	a.sentimentCounts[event.Sentiment]++
	for _, topic := range event.Topics {
		a.topicCounts[topic]++
	}
	for _, keyword := range event.Keywords {
		a.keywordCounts[keyword]++
	}
	a.mu.Unlock()
}

// RecordSearch folds one search event into the counters.
func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.totalSearches.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.Results == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if event.Term != "" {
		a.termCounts[event.Term]++
	}
	a.mu.Unlock()
}

// Stats computes the current aggregate snapshot.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalAnalyses:      a.totalAnalyses.Load(),
		TotalSearches:      a.totalSearches.Load(),
		LLMFallbacks:       a.llmFallbacks.Load(),
		CacheHits:          a.cacheHits.Load(),
		CacheMisses:        a.cacheMisses.Load(),
		ZeroResultSearches: a.zeroResults.Load(),
		SentimentCounts:    make(map[string]int64, len(a.sentimentCounts)),
	}
	for sentiment, count := range a.sentimentCounts {
		stats.SentimentCounts[sentiment] = count
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgAnalysisMs = float64(sum) / float64(len(sorted))
		stats.P50AnalysisMs = percentile(sorted, 50)
		stats.P95AnalysisMs = percentile(sorted, 95)
		stats.P99AnalysisMs = percentile(sorted, 99)
	}
	if stats.TotalAnalyses > 0 {
		stats.AvgConfidence = a.confidenceSum / float64(stats.TotalAnalyses)
	}
	stats.TopTopics = topN(a.topicCounts, 10)
	stats.TopKeywords = topN(a.keywordCounts, 10)
	stats.TopSearchTerms = topN(a.termCounts, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.AnalysesPerMinute = float64(stats.TotalAnalyses) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n highest counts; ties break alphabetically so the
// output is stable.
func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Term < result[j].Term
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
