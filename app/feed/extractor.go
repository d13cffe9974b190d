package feed

import (
	"net/url"
	"strconv"
	"strings"
)

// Layout of an entry summary as published in tag feeds:
//
//	<p>by <a href=".../users/...">author</a></p>     optional
//	<p>free text</p> ...                              zero or more
//	<p>Words: N, Chapters: N/M, Language: L</p>
//	<ul><li>Fandoms: ...</li><li>Rating: ...</li>
//	    <li>Warnings: ...</li><li>Categories: ...</li><li>Characters: ...</li>
//	    <li>Relationships: ...</li><li>Additional Tags: ...</li></ul>
//
// Labels are matched case-insensitively and only from the start of the
// metadata block, so free text that happens to contain "Warnings:" or
// "Words:" is not mistaken for metadata. A section runs from the end of its
// label to the nearest of: a later section label, the Series label, the end
// of the list, the end of the fragment.
const (
	labelWords    = "Words:"
	labelChapters = "Chapters:"
	labelLanguage = "Language:"
	labelRating   = "Rating:"
	labelSeries   = "Series:"
	listEnd       = "</ul>"
)

const (
	sectionWarnings = iota
	sectionCategories
	sectionCharacters
	sectionRelationships
	sectionAdditionalTags
)

var sectionLabels = []string{
	sectionWarnings:       "Warnings:",
	sectionCategories:     "Categories:",
	sectionCharacters:     "Characters:",
	sectionRelationships:  "Relationships:",
	sectionAdditionalTags: "Additional Tags:",
}

// Extractor recovers structured metadata from an entry's summary fragment.
// It is total: any input yields a (possibly empty) Metadata.
type Extractor struct {
	tagPrefixes []string
}

// NewExtractor returns an extractor recognising tag links under siteURL,
// e.g. "https://archiveofourown.org". Both http and https forms match.
func NewExtractor(siteURL string) *Extractor {
	host := strings.TrimRight(siteURL, "/")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")

	return &Extractor{
		tagPrefixes: []string{
			"https://" + host + "/tags/",
			"http://" + host + "/tags/",
		},
	}
}

func (e *Extractor) Run(fragment string) Metadata {
	base := max(metadataStart(fragment), 0)
	sections := e.sections(fragment, base)

	return Metadata{
		Words:          e.words(fragment, base),
		Chapters:       e.chapters(fragment, base),
		Language:       e.language(fragment, base),
		Rating:         e.rating(fragment, base),
		Warnings:       sections[sectionWarnings],
		Categories:     sections[sectionCategories],
		Characters:     sections[sectionCharacters],
		Relationships:  sections[sectionRelationships],
		AdditionalTags: sections[sectionAdditionalTags],
		TagNames:       e.TagNames(fragment),
		Series:         e.series(fragment, base),
	}
}

// metadataStart locates the trailing metadata block: the paragraph holding
// the last "Words:" label before the tag list, else the tag list itself.
// It returns -1 when the fragment has neither. Labels that appear earlier,
// inside the free text, are never read as metadata.
func metadataStart(s string) int {
	list := lastIndexFold(s, "<ul", 0, len(s))
	limit := len(s)
	if list >= 0 {
		limit = list
	}
	if words := lastIndexFold(s, labelWords, 0, limit); words >= 0 {
		if p := lastIndexFold(s, "<p", 0, words); p >= 0 {
			return p
		}
		return words
	}
	return list
}

// TagNames collects the decoded tag segment of every tag link anywhere in
// the fragment, including links outside the labelled sections.
func (e *Extractor) TagNames(fragment string) TagSet {
	names := make(TagSet)
	for _, a := range anchorsIn(fragment, 0, len(fragment)) {
		if name, ok := e.tagName(a.href); ok {
			names.Add(name)
		}
	}
	return names
}

func (e *Extractor) tagName(href string) (string, bool) {
	for _, prefix := range e.tagPrefixes {
		if len(href) <= len(prefix) || !equalFoldASCII(href[:len(prefix)], prefix) {
			continue
		}
		segment := href[len(prefix):]
		if i := strings.IndexAny(segment, "/?#"); i >= 0 {
			segment = segment[:i]
		}
		if segment == "" {
			return "", false
		}
		if decoded, err := url.PathUnescape(segment); err == nil {
			segment = decoded
		}
		return segment, true
	}
	return "", false
}

func (e *Extractor) sections(s string, base int) [][]string {
	positions := make([]int, len(sectionLabels))
	for i, label := range sectionLabels {
		positions[i] = indexFold(s, label, base)
	}

	out := make([][]string, len(sectionLabels))
	for i, start := range positions {
		out[i] = []string{}
		if start < 0 {
			continue
		}
		from := start + len(sectionLabels[i])
		end := sectionEnd(s, from, positions[i+1:])
		for _, a := range anchorsIn(s, from, end) {
			if a.hasHref && a.text != "" {
				out[i] = append(out[i], a.text)
			}
		}
	}
	return out
}

func sectionEnd(s string, from int, later []int) int {
	end := nextIndexAny(s, from, labelSeries, listEnd)
	for _, p := range later {
		if p >= from && p < end {
			end = p
		}
	}
	return end
}

func (e *Extractor) words(s string, base int) *int {
	i := indexFold(s, labelWords, base)
	if i < 0 {
		return nil
	}
	pos := skipSpace(s, i+len(labelWords))

	var digits strings.Builder
	for pos < len(s) {
		c := s[pos]
		switch {
		case isDigit(c):
			digits.WriteByte(c)
			pos++
			continue
		case c == ',' && digits.Len() > 0 && isThousandsGroup(s, pos+1):
			pos++
			continue
		}
		break
	}
	if digits.Len() == 0 {
		return nil
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return nil
	}
	return &n
}

// isThousandsGroup reports whether s[pos:] starts with exactly three digits.
func isThousandsGroup(s string, pos int) bool {
	if pos+3 > len(s) {
		return false
	}
	for k := pos; k < pos+3; k++ {
		if !isDigit(s[k]) {
			return false
		}
	}
	return pos+3 == len(s) || !isDigit(s[pos+3])
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (e *Extractor) chapters(s string, base int) string {
	i := indexFold(s, labelChapters, base)
	if i < 0 {
		return ""
	}
	start := skipSpace(s, i+len(labelChapters))
	pos := start

	for pos < len(s) && isDigit(s[pos]) {
		pos++
	}
	if pos == start || pos >= len(s) || s[pos] != '/' {
		return ""
	}
	pos++
	if pos < len(s) && s[pos] == '?' {
		return s[start : pos+1]
	}
	total := pos
	for pos < len(s) && isDigit(s[pos]) {
		pos++
	}
	if pos == total {
		return ""
	}
	return s[start:pos]
}

// language is plain text up to the next tag.
func (e *Extractor) language(s string, base int) string {
	i := indexFold(s, labelLanguage, base)
	if i < 0 {
		return ""
	}
	from := i + len(labelLanguage)
	return fragmentText(s, from, nextIndexAny(s, from, "<"))
}

// rating is either a tag link or plain text, up to the end of its item.
func (e *Extractor) rating(s string, base int) string {
	i := indexFold(s, labelRating, base)
	if i < 0 {
		return ""
	}
	from := i + len(labelRating)
	end := nextIndexAny(s, from, "</li>", "</p>", "<br", listEnd)
	for _, label := range sectionLabels {
		if p := indexFold(s, label, from); p >= 0 && p < end {
			end = p
		}
	}
	return fragmentText(s, from, end)
}

func (e *Extractor) series(s string, base int) *Series {
	i := indexFold(s, labelSeries, base)
	if i < 0 {
		return nil
	}
	from := i + len(labelSeries)
	for _, a := range anchorsIn(s, from, nextIndexAny(s, from, "</li>", "</p>")) {
		if strings.Contains(a.href, "/series/") && a.text != "" {
			return &Series{Name: a.text, Link: a.href}
		}
	}
	return nil
}
