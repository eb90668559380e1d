// Package storage defines the persisted Analysis record and its store
// backends: PostgreSQL for production and an in-memory store for development
// and tests.
package storage

import (
	"context"
	"time"
)

// Sentiment values accepted on an Analysis record.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// ValidSentiment reports whether s is one of the three accepted sentiments.
func ValidSentiment(s string) bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

// Analysis is a single persisted text analysis. Topics hold exactly three
// lowercase themes from the LLM; Keywords hold at most three lowercase terms
// from the local extractor. Both are queried by containment.
type Analysis struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Text       string    `json:"text"`
	Title      *string   `json:"title"`
	Summary    string    `json:"summary"`
	Topics     []string  `json:"topics"`
	Sentiment  string    `json:"sentiment"`
	Keywords   []string  `json:"keywords"`
	Confidence float64   `json:"confidence"`
}

// Store persists and queries Analysis records.
type Store interface {
	// Insert persists a new analysis and returns it with ID and CreatedAt
	// populated.
	Insert(ctx context.Context, a *Analysis) (*Analysis, error)
	// GetByID returns the analysis with the given ID, or
	// errors.ErrAnalysisNotFound.
	GetByID(ctx context.Context, id string) (*Analysis, error)
	// SearchByTerm returns analyses whose topics or keywords contain the
	// term (case-insensitive), newest first.
	SearchByTerm(ctx context.Context, term string, limit int) ([]Analysis, error)
	// Recent returns the most recently created analyses, newest first.
	Recent(ctx context.Context, limit int) ([]Analysis, error)
}
