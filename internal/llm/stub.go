package llm

import (
	"context"

	"github.com/textmine/knowledge-extractor/internal/storage"
)

// StubClient returns deterministic values without any network calls. It
// backs local development (useStub: true) and unit tests.
type StubClient struct{}

// NewStubClient creates a StubClient.
func NewStubClient() *StubClient {
	return &StubClient{}
}

func (*StubClient) Summarize(ctx context.Context, text string) (string, error) {
	return "This is a stub summary of the provided text.", nil
}

func (*StubClient) ExtractMetadata(ctx context.Context, text string) (*Metadata, error) {
	return &Metadata{
		Title:     nil,
		Topics:    []string{"technology", "ai", "engineering"},
		Sentiment: storage.SentimentNeutral,
	}, nil
}
