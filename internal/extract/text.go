package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MinExcerptLength drops fragments shorter than this many characters.
const MinExcerptLength = 5

// HTMLToText flattens rich text from a report field. Block elements and line
// breaks become newlines so each paragraph or list item stays on its own line.
func HTMLToText(content string) string {
	if !strings.Contains(content, "<") {
		return content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre, div, tr").Each(func(_ int, item *goquery.Selection) {
		item.AppendHtml("\n")
	})

	return doc.Text()
}

// SplitExcerpts splits a field into one excerpt per non-blank line, dropping
// short fragments and bullet markers.
func SplitExcerpts(text string) []string {
	var excerpts []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len([]rune(line)) < MinExcerptLength {
			continue
		}
		if excerpt := stripBullet(line); excerpt != "" {
			excerpts = append(excerpts, excerpt)
		}
	}
	return excerpts
}

// stripBullet removes a "•\t" marker, then one leading "-", "•", "▪" or space.
func stripBullet(line string) string {
	line = strings.TrimPrefix(line, "•\t")
	for _, marker := range []string{"-", "•", "▪", " "} {
		if strings.HasPrefix(line, marker) {
			line = line[len(marker):]
			break
		}
	}
	return strings.TrimSpace(line)
}
