package aiextract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// visibleText returns the readable text of an HTML document, one block per
// line. Payloads that do not parse as HTML are returned as plain text.
func visibleText(payload []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return collapseLines(string(payload))
	}
	doc.Find("script, style, noscript, svg, head, nav, footer, iframe, template").Remove()
	doc.Find("p, div, br, li, tr, h1, h2, h3, h4, h5, h6, blockquote, pre, section, article").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return collapseLines(doc.Text())
}

// collapseLines trims each line, squeezes inner whitespace and drops blank lines.
func collapseLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
