package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/textmine/knowledge-extractor/internal/keywords"
)

var sampleTexts = map[string]string{
	"short": "Kubernetes simplifies container orchestration for platform teams",
	"medium": `Large language models extract structured metadata from unstructured
        text. A summary condenses the document into one or two sentences, while
        topic classification assigns exactly three themes. Sentiment analysis
        labels the overall tone as positive, neutral, or negative. Local keyword
        extraction complements the model output with a deterministic frequency
        heuristic that survives provider outages.`,
	"long": strings.Repeat(`Knowledge extraction pipelines combine remote model
        inference with local heuristics. The keyword extractor tokenises on
        alphabetic words, strips possessives, removes stop words and common
        verbs, then ranks candidates by frequency with boosts for capitalisation
        and length. Confidence scoring blends text length with model
        availability so that degraded analyses are still stored and searchable.
        Redis caching cuts repeated search latency while the circuit breaker
        protects the analyzer from a flapping model endpoint. `, 20),
}

func BenchmarkExtract(b *testing.B) {
	extractor := keywords.New(keywords.DefaultParams())
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				terms := extractor.Extract(text)
				_ = terms
			}
		})
	}
}

func BenchmarkExtractParallel(b *testing.B) {
	extractor := keywords.New(keywords.DefaultParams())
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			terms := extractor.Extract(text)
			_ = terms
		}
	})
}

func BenchmarkCandidates(b *testing.B) {
	extractor := keywords.New(keywords.DefaultParams())
	text := sampleTexts["medium"]
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		candidates := extractor.Candidates(text)
		_ = candidates
	}
}

func BenchmarkExtractVaryingSize(b *testing.B) {
	extractor := keywords.New(keywords.DefaultParams())
	sizes := []int{100, 1000, 10000, 100000}
	baseWord := "knowledge extraction analyzes unstructured technical documents "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				terms := extractor.Extract(text)
				_ = terms
			}
		})
	}
}
