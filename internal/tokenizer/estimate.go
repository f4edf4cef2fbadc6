package tokenizer

import "unicode/utf8"

// Estimate approximates BPE token counts without a vocabulary:
//   - ASCII letter/digit runs cost about one token per 4 characters
//   - other visible ASCII characters cost 1
//   - CJK characters cost 2, any other non-ASCII character 1
type Estimate struct{}

func (Estimate) CountTokens(text string) int {
	return EstimateTokens(text)
}

// EstimateTokens is the function form of Estimate.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	tokens := 0
	run := 0
	flush := func() {
		if run > 0 {
			tokens += (run + 3) / 4
			run = 0
		}
	}

	for i := 0; i < len(text); {
		b := text[i]
		if b < utf8.RuneSelf {
			i++
			switch {
			case isASCIIAlnum(b):
				run++
			case b == ' ' || b == '\t' || b == '\n' || b == '\r':
				flush()
			default:
				flush()
				tokens++
			}
			continue
		}

		flush()
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if IsCJK(r) {
			tokens += 2
		} else {
			tokens++
		}
	}
	flush()
	return tokens
}

func isASCIIAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// IsCJK reports whether r is a Chinese, Japanese or Korean character or CJK
// punctuation.
func IsCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // unified ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // extension A
		return true
	case r >= 0x20000 && r <= 0x2EBEF: // extensions B-F
		return true
	case r >= 0x3040 && r <= 0x309F: // hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // katakana
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // hangul
		return true
	case r >= 0x3000 && r <= 0x303F: // punctuation
		return true
	}
	return false
}
