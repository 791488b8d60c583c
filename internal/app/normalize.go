package app

import (
	"unicode"
	"unicode/utf8"
)

// normalizeText truncates text to at most maxTokens tokens so it fits the
// classifier's context window. A token is a maximal run of letters and digits,
// or a single other non-space rune. Text within budget is returned unchanged;
// oversized text is cut at the byte boundary of the last kept token, so the
// result is always a prefix of the input and the operation is deterministic.
func normalizeText(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return text
	}

	tokens := 0
	inWord := false
	cut := 0 // byte offset just past the last kept token

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				tokens++
				inWord = true
			}
			if tokens > maxTokens {
				return text[:cut]
			}
			cut = i + size
		default:
			// punctuation and symbols count one token per rune
			inWord = false
			tokens++
			if tokens > maxTokens {
				return text[:cut]
			}
			cut = i + size
		}
		i += size
	}
	return text
}
