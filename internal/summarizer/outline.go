package summarizer

import (
	"context"
	"strings"

	"disclosure-api/internal/tokenizer"
)

// Outline summarizes a document by its headings and the first line of each
// paragraph, cut to a token budget.
type Outline struct {
	counter   tokenizer.Counter
	maxTokens int
}

func NewOutline(counter tokenizer.Counter, maxTokens int) *Outline {
	if counter == nil {
		counter = tokenizer.Words{}
	}
	return &Outline{counter: counter, maxTokens: maxTokens}
}

func (o *Outline) Summarize(_ context.Context, _ string, content string) (string, error) {
	return truncateToTokens(o.counter, outlineLines(content), o.maxTokens), nil
}

func outlineLines(content string) string {
	var sb strings.Builder
	paragraphStart := true
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			paragraphStart = true
			continue
		}
		if strings.HasPrefix(line, "#") || paragraphStart {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(line)
		}
		// A heading opens a new paragraph for the line that follows it.
		paragraphStart = strings.HasPrefix(line, "#")
	}
	return sb.String()
}
