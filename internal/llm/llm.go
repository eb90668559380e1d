// Package llm abstracts the language-model provider used to summarize text
// and extract structured metadata. A Gemini-backed client serves production;
// a deterministic stub serves development and tests. ResilientClient wraps
// either with retries, a circuit breaker, and metrics.
package llm

import (
	"context"
)

// Metadata is the structured output of a metadata-extraction call. Topics
// always hold exactly three lowercase themes; Sentiment is one of positive,
// neutral, or negative.
type Metadata struct {
	Title     *string  `json:"title"`
	Topics    []string `json:"topics"`
	Sentiment string   `json:"sentiment"`
}

// Client is the language-model interface the analyzer depends on.
type Client interface {
	// Summarize produces a 1-3 sentence summary of the text.
	Summarize(ctx context.Context, text string) (string, error)
	// ExtractMetadata derives a title, exactly three topics, and an
	// overall sentiment from the text.
	ExtractMetadata(ctx context.Context, text string) (*Metadata, error)
}

const (
	// OperationSummarize and OperationMetadata label LLM calls in logs
	// and metrics.
	OperationSummarize = "summarize"
	OperationMetadata  = "metadata"
)
