// Package orchestrator coordinates a text analysis: local keyword
// extraction, LLM summary and metadata, confidence scoring, persistence,
// and analytics event emission.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/textmine/knowledge-extractor/internal/analytics"
	"github.com/textmine/knowledge-extractor/internal/keywords"
	"github.com/textmine/knowledge-extractor/internal/llm"
	"github.com/textmine/knowledge-extractor/internal/storage"
	"github.com/textmine/knowledge-extractor/pkg/metrics"
	"github.com/textmine/knowledge-extractor/pkg/middleware"
	"github.com/textmine/knowledge-extractor/pkg/tracing"
)

// Fallback values recorded when the LLM is unavailable. The analysis still
// succeeds with local keywords and a reduced confidence.
const (
	fallbackSummary   = "LLM unavailable. Summary could not be generated."
	fallbackSentiment = storage.SentimentNeutral
)

var fallbackTopics = []string{"general", "unknown", "llm-failure"}

// EventTracker receives analytics events. *analytics.Collector satisfies it.
type EventTracker interface {
	Track(event any)
}

// Orchestrator runs the analysis pipeline.
type Orchestrator struct {
	store       storage.Store
	llm         llm.Client
	extractor   *keywords.Extractor
	tracker     EventTracker
	metrics     *metrics.Metrics
	concurrency int
	logger      *slog.Logger
}

// New creates an Orchestrator. Tracker and metrics may be nil; concurrency
// bounds batch parallelism and defaults to 4.
func New(store storage.Store, client llm.Client, extractor *keywords.Extractor, tracker EventTracker, m *metrics.Metrics, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{
		store:       store,
		llm:         client,
		extractor:   extractor,
		tracker:     tracker,
		metrics:     m,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "orchestrator"),
	}
}

// Analyze processes a single validated (trimmed, non-empty) text. An LLM
// failure degrades to fallback values rather than failing the request; only
// a storage error is returned to the caller.
func (o *Orchestrator) Analyze(ctx context.Context, text string) (*storage.Analysis, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "analyze", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Emit()
	}()

	kws := o.extractor.Extract(text)

	var (
		summary   string
		title     *string
		topics    []string
		sentiment string
		llmOK     = true
	)
	llmCtx, llmSpan := tracing.Child(ctx, "llm")
	summary, err := o.llm.Summarize(llmCtx, text)
	if err == nil {
		var meta *llm.Metadata
		meta, err = o.llm.ExtractMetadata(llmCtx, text)
		if err == nil {
			title = meta.Title
			topics = meta.Topics
			sentiment = meta.Sentiment
		}
	}
	llmSpan.End()
	if err != nil {
		o.logger.Warn("LLM unavailable, using fallback metadata", "error", err)
		llmOK = false
		summary = fallbackSummary
		title = nil
		topics = append([]string(nil), fallbackTopics...)
		sentiment = fallbackSentiment
	}

	analysis := &storage.Analysis{
		Text:       text,
		Title:      title,
		Summary:    summary,
		Topics:     topics,
		Sentiment:  sentiment,
		Keywords:   kws,
		Confidence: confidence(text, llmOK),
	}
	_, storeSpan := tracing.Child(ctx, "persist")
	saved, err := o.store.Insert(ctx, analysis)
	storeSpan.End()
	if err != nil {
		o.observe("error", time.Since(start), len(kws))
		return nil, fmt.Errorf("persisting analysis: %w", err)
	}
	span.SetAttr("analysis_id", saved.ID)
	span.SetAttr("llm_fallback", !llmOK)

	elapsed := time.Since(start)
	outcome := "ok"
	if !llmOK {
		outcome = "llm_fallback"
	}
	o.observe(outcome, elapsed, len(kws))
	o.track(ctx, saved, !llmOK, elapsed)

	o.logger.Info("analysis complete",
		"id", saved.ID,
		"sentiment", saved.Sentiment,
		"keywords", len(saved.Keywords),
		"llm_fallback", !llmOK,
		"duration_ms", elapsed.Milliseconds(),
	)
	return saved, nil
}

// AnalyzeBatch processes texts concurrently, bounded by the configured
// concurrency. Results preserve input order. The first storage error cancels
// the remaining work.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, texts []string) ([]storage.Analysis, error) {
	results := make([]storage.Analysis, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			saved, err := o.Analyze(gctx, text)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = *saved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) observe(outcome string, elapsed time.Duration, keywordCount int) {
	if o.metrics == nil {
		return
	}
	o.metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	o.metrics.AnalysisDuration.Observe(elapsed.Seconds())
	o.metrics.KeywordsPerAnalysis.Observe(float64(keywordCount))
}

func (o *Orchestrator) track(ctx context.Context, saved *storage.Analysis, fallback bool, elapsed time.Duration) {
	if o.tracker == nil {
		return
	}
	o.tracker.Track(analytics.AnalysisEvent{
		Type:        analytics.EventAnalysis,
		AnalysisID:  saved.ID,
		Sentiment:   saved.Sentiment,
		Topics:      saved.Topics,
		Keywords:    saved.Keywords,
		Confidence:  saved.Confidence,
		LLMFallback: fallback,
		TextLength:  len(saved.Text),
		LatencyMs:   elapsed.Milliseconds(),
		Timestamp:   time.Now().UTC(),
		RequestID:   middleware.GetRequestID(ctx),
	})
}
