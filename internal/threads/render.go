package threads

import (
	"html"
	"strings"
)

// RenderBody produces the pre-rendered HTML form of a raw message body:
// escaped text with blank-line paragraphs and single-newline breaks.
func RenderBody(body string) string {
	paragraphs := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n")
	var b strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
