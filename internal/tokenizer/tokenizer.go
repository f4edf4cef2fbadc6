// Package tokenizer provides token counters for pricing disclosed payloads.
package tokenizer

import (
	"fmt"
	"strings"
)

// Counter prices a text in tokens. Implementations return 0 for blank text
// and never a negative count.
type Counter interface {
	CountTokens(text string) int
}

// Counter kinds accepted by New.
const (
	KindWords    = "words"
	KindEstimate = "estimate"
	KindBPE      = "bpe"
)

// New builds the counter named by kind. cacheSize > 0 wraps it in Cached.
func New(kind, encoding string, cacheSize int) (Counter, error) {
	var c Counter
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindWords:
		c = Words{}
	case KindEstimate:
		c = Estimate{}
	case KindBPE:
		bpe, err := NewBPE(encoding)
		if err != nil {
			return nil, err
		}
		c = bpe
	default:
		return nil, fmt.Errorf("unknown token counter %q", kind)
	}
	if cacheSize > 0 {
		return NewCached(c, cacheSize), nil
	}
	return c, nil
}
