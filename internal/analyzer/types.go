// Package analyzer defines the request/response types for the text analysis
// HTTP API.
package analyzer

import "github.com/textmine/knowledge-extractor/internal/storage"

// AnalyzeRequest is the JSON body accepted by the analyze endpoint. Exactly
// one of Text (single) or Items (batch) must be set.
type AnalyzeRequest struct {
	Text  *string  `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// AnalyzeResponse wraps the produced analyses. A single-text request yields
// a one-element Results slice.
type AnalyzeResponse struct {
	Results []storage.Analysis `json:"results"`
}

// ListResponse wraps analyses returned by the listing endpoints.
type ListResponse struct {
	Results []storage.Analysis `json:"results"`
}
