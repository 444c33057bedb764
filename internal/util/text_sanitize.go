package util

import "strings"

// SanitizeText removes NUL bytes and other control characters that some
// extractors emit and Postgres text columns reject, normalises line endings
// and squeezes runs of blank lines down to one.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	r := make([]rune, 0, len(s))
	newlines := 0
	for _, ch := range s {
		if ch == '\n' {
			newlines++
			if newlines > 2 {
				continue
			}
			r = append(r, ch)
			continue
		}
		if ch == '\r' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 {
			continue
		}
		newlines = 0
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}
