package util

import (
	"strings"
	"unicode"
)

// ChunkText splits text into windows of at most chunkSize runes, each
// starting overlap runes before the previous window ended. When a window
// would end mid-word it is cut at the last whitespace in its second half.
func ChunkText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	runes := []rune(text)
	out := make([]string, 0)
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes, end-chunkSize/2, end); cut > start {
			end = cut
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			out = append(out, part)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func lastSpace(runes []rune, from, to int) int {
	if from < 0 {
		from = 0
	}
	for i := to; i > from; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
