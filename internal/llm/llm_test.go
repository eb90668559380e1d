package llm

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/textmine/knowledge-extractor/internal/storage"
	apperrors "github.com/textmine/knowledge-extractor/pkg/errors"
)

func TestParseMetadata(t *testing.T) {
	title := "Quarterly Report"

	tests := []struct {
		name string
		raw  string
		want Metadata
	}{
		{
			name: "plain JSON",
			raw:  `{"title": "Quarterly Report", "topics": ["finance", "business", "growth"], "sentiment": "positive"}`,
			want: Metadata{Title: &title, Topics: []string{"finance", "business", "growth"}, Sentiment: "positive"},
		},
		{
			name: "fenced with json tag",
			raw:  "```json\n{\"title\": null, \"topics\": [\"ai\"], \"sentiment\": \"neutral\"}\n```",
			want: Metadata{Topics: []string{"ai", "general", "general"}, Sentiment: "neutral"},
		},
		{
			name: "fenced without tag",
			raw:  "```\n{\"title\": null, \"topics\": [], \"sentiment\": \"negative\"}\n```",
			want: Metadata{Topics: []string{"general", "general", "general"}, Sentiment: "negative"},
		},
		{
			name: "too many topics truncated",
			raw:  `{"title": null, "topics": ["A", "B", "C", "D", "E"], "sentiment": "neutral"}`,
			want: Metadata{Topics: []string{"a", "b", "c"}, Sentiment: "neutral"},
		},
		{
			name: "bad sentiment coerced to neutral",
			raw:  `{"title": null, "topics": ["x1", "y2", "z3"], "sentiment": "ecstatic"}`,
			want: Metadata{Topics: []string{"x1", "y2", "z3"}, Sentiment: "neutral"},
		},
		{
			name: "blank title becomes nil",
			raw:  `{"title": "  ", "topics": ["one", "two", "three"], "sentiment": "neutral"}`,
			want: Metadata{Topics: []string{"one", "two", "three"}, Sentiment: "neutral"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata(tt.raw)
			if err != nil {
				t.Fatalf("parseMetadata: %v", err)
			}
			if !reflect.DeepEqual(*got, tt.want) {
				t.Fatalf("parseMetadata = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseMetadataInvalidJSON(t *testing.T) {
	if _, err := parseMetadata("not json at all"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestStubClientDeterministic(t *testing.T) {
	stub := NewStubClient()
	ctx := context.Background()

	s1, err := stub.Summarize(ctx, "anything")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	s2, _ := stub.Summarize(ctx, "something else entirely")
	if s1 != s2 {
		t.Errorf("stub summaries differ: %q vs %q", s1, s2)
	}

	meta, err := stub.ExtractMetadata(ctx, "anything")
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if meta.Sentiment != storage.SentimentNeutral {
		t.Errorf("sentiment = %q, want neutral", meta.Sentiment)
	}
	if len(meta.Topics) != 3 {
		t.Errorf("got %d topics, want 3", len(meta.Topics))
	}
}

// failingClient always errors, for exercising the resilient wrapper.
type failingClient struct {
	calls int
}

func (f *failingClient) Summarize(ctx context.Context, text string) (string, error) {
	f.calls++
	return "", errors.New("provider down")
}

func (f *failingClient) ExtractMetadata(ctx context.Context, text string) (*Metadata, error) {
	f.calls++
	return nil, errors.New("provider down")
}

func TestResilientClientMapsFailureToLLMUnavailable(t *testing.T) {
	inner := &failingClient{}
	client := NewResilientClient(inner, ResilientConfig{Timeout: time.Second, MaxAttempts: 2}, nil)

	_, err := client.Summarize(context.Background(), "text")
	if !errors.Is(err, apperrors.ErrLLMUnavailable) {
		t.Fatalf("error = %v, want ErrLLMUnavailable", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2 (retry)", inner.calls)
	}
}

func TestResilientClientPassesThroughSuccess(t *testing.T) {
	client := NewResilientClient(NewStubClient(), ResilientConfig{Timeout: time.Second}, nil)

	summary, err := client.Summarize(context.Background(), "text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary == "" {
		t.Error("empty summary")
	}

	meta, err := client.ExtractMetadata(context.Background(), "text")
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if len(meta.Topics) != 3 {
		t.Errorf("got %d topics, want 3", len(meta.Topics))
	}
}
