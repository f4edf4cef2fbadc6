// Package summarizer holds the Summarizer implementations the disclosure
// cache can be wired with.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"disclosure-api/internal/disclosure"
	"disclosure-api/internal/metrics"
	"disclosure-api/internal/tokenizer"
)

// Summarizer kinds accepted by New.
const (
	KindHead    = "head"
	KindOutline = "outline"
)

const ellipsis = "…"

// New builds the summarizer named by kind with a budget of maxTokens as priced
// by counter.
func New(kind string, counter tokenizer.Counter, maxTokens int) (disclosure.Summarizer, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindHead:
		return NewHead(counter, maxTokens), nil
	case KindOutline:
		return NewOutline(counter, maxTokens), nil
	}
	return nil, fmt.Errorf("unknown summarizer %q", kind)
}

// Timed records the latency of every call to inner.
func Timed(inner disclosure.Summarizer) disclosure.Summarizer {
	return disclosure.SummarizerFunc(func(ctx context.Context, docRef, content string) (string, error) {
		start := time.Now()
		defer func() { metrics.SummarizerDuration.Observe(time.Since(start).Seconds()) }()
		return inner.Summarize(ctx, docRef, content)
	})
}

// truncateToTokens keeps the longest rune prefix of text that fits maxTokens
// and marks the cut with an ellipsis.
func truncateToTokens(counter tokenizer.Counter, text string, maxTokens int) string {
	if text == "" || maxTokens <= 0 {
		return ""
	}
	if counter.CountTokens(text) <= maxTokens {
		return text
	}

	runes := []rune(text)
	low, high := 1, len(runes)
	best := 0
	for low <= high {
		mid := (low + high) / 2
		if counter.CountTokens(string(runes[:mid])) <= maxTokens {
			best = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	if best == 0 {
		return ""
	}
	cut := strings.TrimRightFunc(string(runes[:best]), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if cut == "" {
		return ""
	}
	return cut + ellipsis
}
