// Package search defines the result type for topic/keyword lookups against
// stored analyses.
package search

import "github.com/textmine/knowledge-extractor/internal/storage"

// Result is the JSON payload returned by the search endpoint and cached in
// Redis.
type Result struct {
	Term    string             `json:"term"`
	Total   int                `json:"total"`
	Results []storage.Analysis `json:"results"`
}
