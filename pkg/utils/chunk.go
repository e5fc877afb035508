// Package utils provides shared utility functions.
package utils

import "strings"

// Chunk splits text into transport-safe segments of at most maxLen bytes.
// It is greedy: each chunk takes up to maxLen, backtracking to the last
// newline at or before the boundary so lines are not split mid-way. When a
// stretch has no newline at all, it falls back to a hard cut at maxLen.
// Leading newlines are stripped from the remainder so no chunk starts with
// blank lines. Joining the chunks with "\n" restores the original text up to
// the stripped separators.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var parts []string
	for text != "" {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		idx := strings.LastIndex(text[:maxLen], "\n")
		if idx <= 0 {
			idx = maxLen
		}
		parts = append(parts, text[:idx])
		text = strings.TrimLeft(text[idx:], "\n")
	}
	return parts
}
