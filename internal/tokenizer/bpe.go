package tokenizer

import (
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when no BPE encoding is configured.
const DefaultEncoding = "cl100k_base"

// BPE counts tokens with a tiktoken encoding.
type BPE struct {
	name     string
	encoding *tiktoken.Tiktoken
}

// NewBPE loads the named encoding. Rank files come from the loader installed
// by InitRankLoader, or from tiktoken's default network loader when it was
// never called.
func NewBPE(name string) (*BPE, error) {
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", name, err)
	}
	return &BPE{name: name, encoding: enc}, nil
}

func (b *BPE) Name() string { return b.name }

func (b *BPE) CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(b.encoding.Encode(text, nil, nil))
}
