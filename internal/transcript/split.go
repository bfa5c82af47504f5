package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split breaks text into trimmed sentences at sentence-terminal punctuation
// (. ! ?) that is followed by whitespace. Trailing text without terminal
// punctuation becomes its own sentence.
func Split(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(text) {
			continue
		}
		following, _ := utf8.DecodeRuneInString(text[next:])
		if !unicode.IsSpace(following) {
			continue
		}
		if sentence := strings.TrimSpace(text[start:next]); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = next
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
