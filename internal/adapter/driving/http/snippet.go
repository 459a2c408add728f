package httphandler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	snippetRenderer  = goldmark.New()
	snippetSanitizer = bluemonday.UGCPolicy()
)

// markdownAltReplacer escapes the characters that would end a Markdown image's alt text.
var markdownAltReplacer = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

// markdownSnippet returns the Markdown that embeds the badge.
func markdownSnippet(label, imageURL string) string {
	return fmt.Sprintf("![%s](%s)", markdownAltReplacer.Replace(label), imageURL)
}

// htmlSnippet renders the Markdown snippet to sanitized HTML, without the
// wrapping paragraph.
func htmlSnippet(markdown string) string {
	var buf bytes.Buffer
	if err := snippetRenderer.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}

	out := strings.TrimSpace(snippetSanitizer.Sanitize(buf.String()))
	out = strings.TrimPrefix(out, "<p>")
	out = strings.TrimSuffix(out, "</p>")
	return out
}
