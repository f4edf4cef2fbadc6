package summarizer

import (
	"context"

	"disclosure-api/internal/tokenizer"
)

// Head summarizes a document by its leading text, cut to a token budget.
type Head struct {
	counter   tokenizer.Counter
	maxTokens int
}

func NewHead(counter tokenizer.Counter, maxTokens int) *Head {
	if counter == nil {
		counter = tokenizer.Words{}
	}
	return &Head{counter: counter, maxTokens: maxTokens}
}

func (h *Head) Summarize(_ context.Context, _ string, content string) (string, error) {
	return truncateToTokens(h.counter, content, h.maxTokens), nil
}
