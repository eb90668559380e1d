// Package validator provides input validation for analyze requests. It
// enforces the text/items exclusivity rule and length limits, returning
// per-field error details.
package validator

import (
	"fmt"
	"strings"

	"github.com/textmine/knowledge-extractor/internal/analyzer"
)

// Limits bound the accepted input sizes.
type Limits struct {
	MaxTextLength int
	MaxBatchItems int
}

// DefaultLimits returns the limits used when config leaves them zero.
func DefaultLimits() Limits {
	return Limits{
		MaxTextLength: 1048576,
		MaxBatchItems: 25,
	}
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateAnalyzeRequest checks the request and returns the texts to
// analyze: either the single trimmed text or the batch items (trimmed,
// order preserved).
func ValidateAnalyzeRequest(req *analyzer.AnalyzeRequest, limits Limits) ([]string, error) {
	defaults := DefaultLimits()
	if limits.MaxTextLength <= 0 {
		limits.MaxTextLength = defaults.MaxTextLength
	}
	if limits.MaxBatchItems <= 0 {
		limits.MaxBatchItems = defaults.MaxBatchItems
	}

	errs := make(map[string]string)

	hasText := req.Text != nil
	hasItems := req.Items != nil

	switch {
	case !hasText && !hasItems:
		errs["text"] = "provide 'text' or 'items' with data"
	case hasText && hasItems:
		errs["items"] = "provide either 'text' or 'items', not both"
	case hasText:
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			errs["text"] = "text must not be empty"
		} else if len(text) > limits.MaxTextLength {
			errs["text"] = fmt.Sprintf("text must be at most %d characters", limits.MaxTextLength)
		} else {
			return []string{text}, nil
		}
	case hasItems:
		if len(req.Items) == 0 {
			errs["items"] = "items must be a non-empty list of strings"
			break
		}
		if len(req.Items) > limits.MaxBatchItems {
			errs["items"] = fmt.Sprintf("items must contain at most %d texts", limits.MaxBatchItems)
			break
		}
		texts := make([]string, len(req.Items))
		for i, item := range req.Items {
			text := strings.TrimSpace(item)
			if text == "" {
				errs[fmt.Sprintf("items[%d]", i)] = "item must not be empty"
				continue
			}
			if len(text) > limits.MaxTextLength {
				errs[fmt.Sprintf("items[%d]", i)] = fmt.Sprintf("item must be at most %d characters", limits.MaxTextLength)
				continue
			}
			texts[i] = text
		}
		if len(errs) == 0 {
			return texts, nil
		}
	}

	return nil, &ValidationError{Fields: errs}
}
