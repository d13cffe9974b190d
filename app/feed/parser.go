package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
)

type Parser struct {
	extractor *Extractor
}

func NewParser(extractor *Extractor) *Parser {
	return &Parser{
		extractor: extractor,
	}
}

// Run parses an Atom body into entries in feed order. When the body is
// malformed, Run returns the entries it could recover together with a
// *MalformedFeedWarning; callers should log it and carry on.
func (p *Parser) Run(url string, data []byte) ([]Entry, error) {
	parsed, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
	if err == nil {
		return p.normalizeEntries(parsed.Entries), nil
	}

	if feedType := gofeed.DetectFeedType(bytes.NewReader(data)); feedType != gofeed.FeedTypeAtom && feedType != gofeed.FeedTypeUnknown {
		err = fmt.Errorf("unsupported feed type %v: %w", feedType, err)
	}

	recovered := salvageEntries(data)
	entries := p.normalizeEntries(recovered)

	return entries, &MalformedFeedWarning{URL: url, Recovered: len(entries), Err: err}
}

// salvageEntries re-parses each <entry> element on its own, wrapped in the
// document's preamble, keeping those that parse.
func salvageEntries(data []byte) []*atom.Entry {
	s := string(data)
	first := nextEntryStart(s, 0)
	if first < 0 {
		return nil
	}
	preamble := s[:first]

	var entries []*atom.Entry
	for pos := first; ; {
		start := nextEntryStart(s, pos)
		if start < 0 {
			break
		}
		end := indexFold(s, "</entry>", start)
		if end < 0 {
			break
		}
		end += len("</entry>")

		doc := preamble + s[start:end] + "</feed>"
		if parsed, err := (&atom.Parser{}).Parse(strings.NewReader(doc)); err == nil {
			entries = append(entries, parsed.Entries...)
		}
		pos = end
	}

	return entries
}

func nextEntryStart(s string, from int) int {
	for i := indexFold(s, "<entry", from); i >= 0; i = indexFold(s, "<entry", i+1) {
		if i+6 < len(s) && isTagDelim(s[i+6]) {
			return i
		}
	}
	return -1
}

func (p *Parser) normalizeEntries(entries []*atom.Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		out = append(out, p.normalizeEntry(entry))
	}
	return out
}

func (p *Parser) normalizeEntry(entry *atom.Entry) Entry {
	link := alternateLink(entry)

	summary := entry.Summary
	if summary == "" && entry.Content != nil {
		summary = entry.Content.Value
	}

	normalized := Entry{
		ID:          cmp.Or(entry.ID, link),
		Title:       html.UnescapeString(strings.TrimSpace(entry.Title)),
		Link:        link,
		SummaryHTML: summary,
		Synopsis:    Synopsis(summary),
		Metadata:    p.extractor.Run(summary),
	}

	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		normalized.PublishedAt = &t
	}

	if entry.UpdatedParsed != nil {
		t := entry.UpdatedParsed.UTC()
		normalized.UpdatedAt = &t
	}

	normalized.Author, normalized.AuthorLink = p.extractAuthor(entry, summary)

	return normalized
}

func (p *Parser) extractAuthor(entry *atom.Entry, summary string) (string, string) {
	var name, link string

	for _, author := range entry.Authors {
		if author == nil {
			continue
		}
		name = strings.TrimSpace(author.Name)
		link = strings.TrimSpace(author.URI)
		break
	}

	// The summary's leading "by <a href=.../users/...>" paragraph carries the
	// profile link when the entry's author element does not.
	if end := authorParagraphEnd(summary); end > 0 {
		for _, a := range anchorsIn(summary, 0, end) {
			if strings.Contains(a.href, "/users/") {
				name = cmp.Or(name, a.text)
				link = cmp.Or(link, a.href)
				break
			}
		}
	}

	return name, link
}

func alternateLink(entry *atom.Entry) string {
	var fallback string
	for _, l := range entry.Links {
		if l == nil || l.Href == "" {
			continue
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
		if fallback == "" {
			fallback = l.Href
		}
	}
	return fallback
}

// sortKey is updated, else published, else the zero time, which orders
// before every real timestamp.
func (e Entry) sortKey() time.Time {
	if e.UpdatedAt != nil {
		return *e.UpdatedAt
	}
	if e.PublishedAt != nil {
		return *e.PublishedAt
	}
	return time.Time{}
}
