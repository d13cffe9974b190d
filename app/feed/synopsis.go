package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Synopsis returns the human-readable summary text of a fragment: the
// paragraphs between the author paragraph and the metadata paragraph,
// markup stripped, entities decoded, separated by a blank line.
func Synopsis(fragment string) string {
	start := authorParagraphEnd(fragment)
	stop := synopsisStop(fragment, start)
	if stop <= start {
		return ""
	}
	span := fragment[start:stop]

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(span))
	if err != nil {
		return ""
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return strings.TrimSpace(doc.Text())
	}

	return strings.Join(paragraphs, "\n\n")
}

// authorParagraphEnd returns the offset just past a leading "by <author>"
// paragraph, or 0 when the fragment does not start with one.
func authorParagraphEnd(s string) int {
	pos := skipSpace(s, 0)
	if indexFold(s, "<p", pos) != pos || pos+2 >= len(s) || !isTagDelim(s[pos+2]) {
		return 0
	}
	closeAt := indexFold(s, "</p>", pos)
	if closeAt < 0 {
		return 0
	}

	para := s[pos:closeAt]
	text := strings.ToLower(fragmentText(para, 0, len(para)))
	if strings.HasPrefix(text, "by ") || strings.Contains(para, "/users/") {
		return closeAt + len("</p>")
	}
	return 0
}

// synopsisStop finds where the free text ends: at the metadata block, else
// at the first section label, else the fragment end.
func synopsisStop(s string, from int) int {
	if meta := metadataStart(s); meta >= from {
		return meta
	}

	stop := len(s)
	for _, label := range sectionLabels {
		if p := indexFold(s, label, from); p >= 0 && p < stop {
			stop = p
		}
	}
	return stop
}
