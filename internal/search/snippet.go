package search

import "strings"

// snippetRadius is how many characters of context surround a match.
const snippetRadius = 40

// Snippet extracts a short window of body around the first occurrence of q,
// with ellipses marking truncation. Falls back to the head of the body when
// the normalized positions don't line up with the raw text.
func Snippet(body, q string) string {
	lower := strings.ToLower(body)
	idx := strings.Index(lower, strings.ToLower(q))
	if idx < 0 {
		idx = 0
	}

	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + len(q) + snippetRadius
	if end > len(body) {
		end = len(body)
	}

	// Avoid splitting words at the edges.
	if start > 0 {
		if sp := strings.IndexByte(body[start:end], ' '); sp >= 0 && start+sp < idx {
			start += sp + 1
		}
	}

	snippet := strings.TrimSpace(body[start:end])
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(body) {
		snippet += "…"
	}
	return snippet
}
