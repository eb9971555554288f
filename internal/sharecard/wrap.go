package sharecard

import (
	"strings"
	"unicode/utf8"
)

// Wrap splits text into lines of at most limit runes using greedy word wrap.
// Words longer than limit are split across lines. Whitespace runs collapse to a
// single space. Empty text yields no lines.
func Wrap(text string, limit int) []string {
	if limit < 1 {
		limit = 1
	}

	var lines []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			lines = append(lines, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for _, chunk := range splitWord(word, limit) {
			n := utf8.RuneCountInString(chunk)
			switch {
			case currentLen == 0:
				current.WriteString(chunk)
				currentLen = n
			case currentLen+1+n <= limit:
				current.WriteByte(' ')
				current.WriteString(chunk)
				currentLen += 1 + n
			default:
				flush()
				current.WriteString(chunk)
				currentLen = n
			}
		}
	}
	flush()

	return lines
}

func splitWord(word string, limit int) []string {
	runes := []rune(word)
	if len(runes) <= limit {
		return []string{word}
	}
	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
