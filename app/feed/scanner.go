package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Helpers for scanning the summary fragment. Label boundaries are found on
// raw byte offsets; the markup inside a span is left to goquery. Nothing
// here fails.

// indexFold returns the index of the first ASCII case-insensitive match of
// needle in s at or after from, or -1. needle must be ASCII.
func indexFold(s, needle string, from int) int {
	if from < 0 {
		from = 0
	}
	n := len(needle)
	for i := from; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], needle) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// lastIndexFold returns the last match of needle that starts in [from, before).
func lastIndexFold(s, needle string, from, before int) int {
	last := -1
	for i := indexFold(s, needle, from); i >= 0 && i < before; i = indexFold(s, needle, i+1) {
		last = i
	}
	return last
}

type anchor struct {
	href    string
	hasHref bool
	text    string
}

// anchorsIn returns the anchors found in s[from:to], in document order.
// The span is parsed on its own, so offsets only need to fall between
// elements, which the label grammar guarantees for well-formed fragments.
func anchorsIn(s string, from, to int) []anchor {
	doc, ok := spanDocument(s, from, to)
	if !ok {
		return nil
	}

	var out []anchor
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, hasHref := sel.Attr("href")
		out = append(out, anchor{
			href:    strings.TrimSpace(href),
			hasHref: hasHref,
			text:    strings.TrimSpace(sel.Text()),
		})
	})
	return out
}

// fragmentText returns the text content of s[from:to] with markup dropped
// and entities decoded.
func fragmentText(s string, from, to int) string {
	doc, ok := spanDocument(s, from, to)
	if !ok {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

func spanDocument(s string, from, to int) (*goquery.Document, bool) {
	if from < 0 {
		from = 0
	}
	if to > len(s) {
		to = len(s)
	}
	if from >= to {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s[from:to]))
	if err != nil {
		return nil, false
	}
	return doc, true
}

func isTagDelim(c byte) bool {
	return c == ' ' || c == '>' || c == '\t' || c == '\n' || c == '\r' || c == '/'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// nextIndexAny returns the smallest offset at or after from where any of
// markers starts, or len(s).
func nextIndexAny(s string, from int, markers ...string) int {
	end := len(s)
	for _, marker := range markers {
		if p := indexFold(s, marker, from); p >= 0 && p < end {
			end = p
		}
	}
	return end
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && isSpace(s[pos]) {
		pos++
	}
	return pos
}
