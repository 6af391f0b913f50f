package openai

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// cleanCompletion strips reasoning blocks some local models emit before the
// answer and trims surrounding whitespace.
func cleanCompletion(s string) string {
	for {
		start := strings.Index(s, thinkOpen)
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], thinkClose)
		if end < 0 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len(thinkClose):]
	}
	return strings.TrimSpace(s)
}
