package orchestrator

import (
	"math"
	"strings"
)

// confidence computes a naive confidence score for an analysis. It starts
// from a base of 0.55, grows with the logarithm of the word count saturating
// at +0.30, and adds +0.10 when the LLM responded. The result is clamped to
// [0.50, 0.98] and rounded to three decimals.
func confidence(text string, llmOK bool) float64 {
	words := len(strings.Fields(text))
	if words < 1 {
		words = 1
	}
	lengthBonus := math.Log10(float64(words)+9) / 10.0
	if lengthBonus > 0.30 {
		lengthBonus = 0.30
	}
	llmBonus := 0.0
	if llmOK {
		llmBonus = 0.10
	}
	conf := 0.55 + lengthBonus + llmBonus
	conf = math.Round(conf*1000) / 1000
	return math.Max(0.50, math.Min(0.98, conf))
}
