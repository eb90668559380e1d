package storage

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/textmine/knowledge-extractor/pkg/errors"
)

func testAnalysis(text string, topics, keywords []string) *Analysis {
	return &Analysis{
		Text:       text,
		Summary:    "summary of " + text,
		Topics:     topics,
		Sentiment:  SentimentNeutral,
		Keywords:   keywords,
		Confidence: 0.75,
	}
}

func TestMemoryStoreInsertAssignsIDAndTimestamp(t *testing.T) {
	store := NewMemoryStore()
	saved, err := store.Insert(context.Background(),
		testAnalysis("text", []string{"ai"}, []string{"model"}))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if saved.ID == "" {
		t.Error("Insert did not assign an ID")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("Insert did not assign CreatedAt")
	}
}

func TestMemoryStoreGetByID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	saved, _ := store.Insert(ctx, testAnalysis("text", []string{"ai"}, nil))

	got, err := store.GetByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Text != "text" {
		t.Errorf("GetByID text = %q, want %q", got.Text, "text")
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, apperrors.ErrAnalysisNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrAnalysisNotFound", err)
	}
}

func TestMemoryStoreSearchByTerm(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Insert(ctx, testAnalysis("first", []string{"ai", "engineering"}, []string{"model"}))
	store.Insert(ctx, testAnalysis("second", []string{"databases"}, []string{"postgresql", "indexing"}))
	store.Insert(ctx, testAnalysis("third", []string{"ai", "infrastructure"}, []string{"kubernetes"}))

	t.Run("matches topics", func(t *testing.T) {
		results, err := store.SearchByTerm(ctx, "ai", 10)
		if err != nil {
			t.Fatalf("SearchByTerm: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		// Newest first.
		if results[0].Text != "third" || results[1].Text != "first" {
			t.Errorf("unexpected order: %s, %s", results[0].Text, results[1].Text)
		}
	})

	t.Run("matches keywords", func(t *testing.T) {
		results, err := store.SearchByTerm(ctx, "postgresql", 10)
		if err != nil {
			t.Fatalf("SearchByTerm: %v", err)
		}
		if len(results) != 1 || results[0].Text != "second" {
			t.Fatalf("got %v, want the databases analysis", results)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		results, err := store.SearchByTerm(ctx, "  Kubernetes ", 10)
		if err != nil {
			t.Fatalf("SearchByTerm: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("got %d results, want 1", len(results))
		}
	})

	t.Run("no match", func(t *testing.T) {
		results, err := store.SearchByTerm(ctx, "blockchain", 10)
		if err != nil {
			t.Fatalf("SearchByTerm: %v", err)
		}
		if len(results) != 0 {
			t.Fatalf("got %d results, want 0", len(results))
		}
	})

	t.Run("empty term returns recent", func(t *testing.T) {
		results, err := store.SearchByTerm(ctx, "", 2)
		if err != nil {
			t.Fatalf("SearchByTerm: %v", err)
		}
		if len(results) != 2 || results[0].Text != "third" {
			t.Fatalf("got %v, want the 2 newest", results)
		}
	})
}

func TestMemoryStoreRecentLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c", "d"} {
		store.Insert(ctx, testAnalysis(text, nil, nil))
	}
	results, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Text != "d" {
		t.Errorf("newest first: got %q, want %q", results[0].Text, "d")
	}
}
