package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/textmine/knowledge-extractor/internal/analytics"
	"github.com/textmine/knowledge-extractor/internal/search"
	"github.com/textmine/knowledge-extractor/internal/storage"
)

type captureTracker struct {
	events []analytics.SearchEvent
}

func (c *captureTracker) Track(key string, value any) {
	if e, ok := value.(analytics.SearchEvent); ok {
		c.events = append(c.events, e)
	}
}

func seedStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()
	rows := []storage.Analysis{
		{Text: "first", Summary: "s", Topics: []string{"ai", "cloud"}, Sentiment: "neutral", Keywords: []string{"model"}},
		{Text: "second", Summary: "s", Topics: []string{"databases"}, Sentiment: "positive", Keywords: []string{"postgresql"}},
		{Text: "third", Summary: "s", Topics: []string{"ai"}, Sentiment: "negative", Keywords: []string{"training"}},
	}
	for i := range rows {
		if _, err := store.Insert(ctx, &rows[i]); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	return store
}

func newTestServer(t *testing.T, tracker EventTracker) *httptest.Server {
	t.Helper()
	h := New(seedStore(t), nil, tracker, nil, 25, 100)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doSearch(t *testing.T, server *httptest.Server, query string) (*http.Response, search.Result) {
	t.Helper()
	resp, err := http.Get(server.URL + "/api/v1/search" + query)
	if err != nil {
		t.Fatalf("GET /api/v1/search%s: %v", query, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var result search.Result
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp, result
}

func TestSearchByTopic(t *testing.T) {
	server := newTestServer(t, nil)

	resp, result := doSearch(t, server, "?topic=ai")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if result.Total != 2 {
		t.Fatalf("total = %d, want 2", result.Total)
	}
	// Newest first.
	if result.Results[0].Text != "third" {
		t.Errorf("first result = %q, want third", result.Results[0].Text)
	}
}

func TestSearchByKeyword(t *testing.T) {
	server := newTestServer(t, nil)

	_, result := doSearch(t, server, "?topic=postgresql")
	if result.Total != 1 || result.Results[0].Text != "second" {
		t.Fatalf("result = %+v, want the databases analysis", result)
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	server := newTestServer(t, nil)

	_, result := doSearch(t, server, "?topic=AI")
	if result.Total != 2 {
		t.Fatalf("total = %d, want 2 (case-insensitive match)", result.Total)
	}
}

func TestSearchNoTermReturnsRecent(t *testing.T) {
	server := newTestServer(t, nil)

	resp, result := doSearch(t, server, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if result.Total != 3 {
		t.Fatalf("total = %d, want all 3", result.Total)
	}
}

func TestSearchZeroResults(t *testing.T) {
	server := newTestServer(t, nil)

	resp, result := doSearch(t, server, "?topic=blockchain")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty results", resp.StatusCode)
	}
	if result.Total != 0 || result.Results == nil {
		t.Fatalf("result = %+v, want empty non-nil results", result)
	}
}

func TestSearchLimits(t *testing.T) {
	server := newTestServer(t, nil)

	t.Run("respects limit", func(t *testing.T) {
		_, result := doSearch(t, server, "?topic=ai&limit=1")
		if result.Total != 1 {
			t.Fatalf("total = %d, want 1", result.Total)
		}
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		resp, _ := doSearch(t, server, "?topic=ai&limit=abc")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		resp, _ := doSearch(t, server, "?topic=ai&limit=0")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestSearchTracksEvents(t *testing.T) {
	tracker := &captureTracker{}
	server := newTestServer(t, tracker)

	doSearch(t, server, "?topic=ai")
	doSearch(t, server, "?topic=nothing")

	if len(tracker.events) != 2 {
		t.Fatalf("tracked %d events, want 2", len(tracker.events))
	}
	if tracker.events[0].Term != "ai" || tracker.events[0].Results != 2 {
		t.Errorf("event 0 = %+v", tracker.events[0])
	}
	if tracker.events[1].Results != 0 {
		t.Errorf("event 1 = %+v, want zero results", tracker.events[1])
	}
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/api/v1/cache/stats")
	if err != nil {
		t.Fatalf("GET cache stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d, want 200", resp.StatusCode)
	}
	var stats map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats["status"] != "disabled" {
		t.Errorf("stats = %v, want disabled marker", stats)
	}

	invResp, err := http.Post(server.URL+"/api/v1/cache/invalidate", "application/json", nil)
	if err != nil {
		t.Fatalf("POST invalidate: %v", err)
	}
	defer invResp.Body.Close()
	if invResp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("invalidate status = %d, want 503", invResp.StatusCode)
	}
}
