package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anhandler "github.com/textmine/knowledge-extractor/internal/analyzer/handler"
	"github.com/textmine/knowledge-extractor/internal/analyzer/orchestrator"
	"github.com/textmine/knowledge-extractor/internal/analyzer/validator"
	"github.com/textmine/knowledge-extractor/internal/keywords"
	"github.com/textmine/knowledge-extractor/internal/llm"
	srhandler "github.com/textmine/knowledge-extractor/internal/search/handler"
	"github.com/textmine/knowledge-extractor/internal/storage"
)

// newInMemoryPlatform wires the analyzer and searcher handlers over a shared
// in-memory store with the stub LLM. No external services are required.
func newInMemoryPlatform(t *testing.T) (analyzer *httptest.Server, searcher *httptest.Server) {
	t.Helper()

	store := storage.NewMemoryStore()
	extractor := keywords.New(keywords.DefaultParams())
	orch := orchestrator.New(store, llm.NewStubClient(), extractor, nil, nil, 4)

	ah := anhandler.New(orch, store, validator.Limits{}, 25, 100)
	analyzerMux := http.NewServeMux()
	analyzerMux.HandleFunc("POST /api/v1/analyze", ah.Analyze)
	analyzerMux.HandleFunc("GET /api/v1/analyses", ah.List)
	analyzerMux.HandleFunc("GET /api/v1/analyses/{id}", ah.Get)
	analyzer = httptest.NewServer(analyzerMux)
	t.Cleanup(analyzer.Close)

	sh := srhandler.New(store, nil, nil, nil, 25, 100)
	searcherMux := http.NewServeMux()
	searcherMux.HandleFunc("GET /api/v1/search", sh.Search)
	searcher = httptest.NewServer(searcherMux)
	t.Cleanup(searcher.Close)

	return analyzer, searcher
}

// TestAnalyzeThenSearchFlow runs the full pipeline in memory: analyze a text,
// confirm its keywords, then find the stored analysis by keyword search.
func TestAnalyzeThenSearchFlow(t *testing.T) {
	analyzer, searcher := newInMemoryPlatform(t)

	payload := `{"text": "The flowcheck pipeline ingests documents. The flowcheck pipeline stores results. Teams query the flowcheck pipeline daily."}`
	resp, err := http.Post(analyzer.URL+"/api/v1/analyze", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("analyze request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var analyzeResult struct {
		Results []storage.Analysis `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&analyzeResult); err != nil {
		t.Fatalf("decoding analyze response: %v", err)
	}
	if len(analyzeResult.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(analyzeResult.Results))
	}
	analysis := analyzeResult.Results[0]

	if analysis.ID == "" {
		t.Error("expected analysis ID to be assigned")
	}
	var hasKeyword bool
	for _, kw := range analysis.Keywords {
		if kw == "flowcheck" {
			hasKeyword = true
		}
	}
	if !hasKeyword {
		t.Fatalf("expected keywords to contain %q, got %v", "flowcheck", analysis.Keywords)
	}

	searchResp, err := http.Get(searcher.URL + "/api/v1/search?topic=flowcheck")
	if err != nil {
		t.Fatalf("search request failed: %v", err)
	}
	defer searchResp.Body.Close()

	if searchResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", searchResp.StatusCode)
	}

	var searchResult struct {
		Term    string             `json:"term"`
		Total   int                `json:"total"`
		Results []storage.Analysis `json:"results"`
	}
	if err := json.NewDecoder(searchResp.Body).Decode(&searchResult); err != nil {
		t.Fatalf("decoding search response: %v", err)
	}
	if searchResult.Total != 1 {
		t.Fatalf("expected 1 search result, got %d", searchResult.Total)
	}
	if searchResult.Results[0].ID != analysis.ID {
		t.Errorf("search returned analysis %s, want %s", searchResult.Results[0].ID, analysis.ID)
	}
}

// TestBatchAnalyzeThenSearchByTopic verifies that batch-analyzed texts are
// all searchable by a stub topic, newest first.
func TestBatchAnalyzeThenSearchByTopic(t *testing.T) {
	analyzer, searcher := newInMemoryPlatform(t)

	payload := `{"items": [
		"Kubernetes clusters need careful capacity planning.",
		"PostgreSQL indexes speed up containment queries.",
		"Redis caching keeps search latency low."
	]}`
	resp, err := http.Post(analyzer.URL+"/api/v1/analyze", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("batch analyze request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var analyzeResult struct {
		Results []storage.Analysis `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&analyzeResult); err != nil {
		t.Fatalf("decoding analyze response: %v", err)
	}
	if len(analyzeResult.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(analyzeResult.Results))
	}

	// The stub LLM assigns the "technology" topic to every analysis.
	searchResp, err := http.Get(searcher.URL + "/api/v1/search?topic=technology")
	if err != nil {
		t.Fatalf("search request failed: %v", err)
	}
	defer searchResp.Body.Close()

	var searchResult struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(searchResp.Body).Decode(&searchResult); err != nil {
		t.Fatalf("decoding search response: %v", err)
	}
	if searchResult.Total != 3 {
		t.Errorf("expected 3 results for stub topic, got %d", searchResult.Total)
	}
}
