// Package analytics aggregates analysis and search events consumed from
// Kafka into rolling usage statistics served over HTTP.
package analytics

import "time"

type EventType string

const (
	EventAnalysis EventType = "analysis"
	EventSearch   EventType = "search"
)

// AnalysisEvent is emitted by the analyzer for every completed analysis,
// including LLM-fallback ones.
type AnalysisEvent struct {
	Type        EventType `json:"type"`
	AnalysisID  string    `json:"analysis_id"`
	Sentiment   string    `json:"sentiment"`
	Topics      []string  `json:"topics"`
	Keywords    []string  `json:"keywords"`
	Confidence  float64   `json:"confidence"`
	LLMFallback bool      `json:"llm_fallback"`
	TextLength  int       `json:"text_length"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}

// SearchEvent is emitted by the searcher for every search query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Term      string    `json:"term"`
	Results   int       `json:"results"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// envelope carries just the type discriminator for decode dispatch.
type envelope struct {
	Type EventType `json:"type"`
}
