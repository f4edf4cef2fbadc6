package tokenizer

import "strings"

// Words counts whitespace-separated words. Blank text is 0.
type Words struct{}

func (Words) CountTokens(text string) int {
	return len(strings.Fields(text))
}
