package disclosure

import (
	"context"
	"strings"
)

// TokenCounter prices a text. Blank text costs 0.
type TokenCounter interface {
	CountTokens(text string) int
}

// TokenCounterFunc adapts a plain function to TokenCounter.
type TokenCounterFunc func(text string) int

func (f TokenCounterFunc) CountTokens(text string) int { return f(text) }

// Summarizer condenses a document. An empty result is a valid summary.
type Summarizer interface {
	Summarize(ctx context.Context, docRef, content string) (string, error)
}

// SummarizerFunc adapts a plain function to Summarizer.
type SummarizerFunc func(ctx context.Context, docRef, content string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, docRef, content string) (string, error) {
	return f(ctx, docRef, content)
}

// WhitespaceCounter counts whitespace-separated words.
type WhitespaceCounter struct{}

func (WhitespaceCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}
