// Package transcript turns live transcription fragments into correctable
// sentence segments and assembles the final transcript.
package transcript

import "strings"

// Assemble joins segment texts with single spaces, normalizing whitespace
// and skipping empty entries.
func Assemble(texts []string) string {
	cleaned := make([]string, 0, len(texts))
	for _, text := range texts {
		if text = cleanSegment(text); text != "" {
			cleaned = append(cleaned, text)
		}
	}
	return strings.Join(cleaned, " ")
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
