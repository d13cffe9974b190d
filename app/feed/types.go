package feed

import (
	"errors"
	"fmt"
	"time"
)

// Entry types

type Entry struct {
	ID          string
	Title       string
	Link        string
	Author      string
	AuthorLink  string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
	SummaryHTML string // kept verbatim for rendering
	Synopsis    string

	Metadata
}

type Metadata struct {
	Words          *int
	Chapters       string // raw "N/M" token, M may be "?"
	Language       string
	Rating         string
	Warnings       []string
	Categories     []string
	Characters     []string
	Relationships  []string
	AdditionalTags []string
	TagNames       TagSet
	Series         *Series
}

type Series struct {
	Name string
	Link string
}

// TagSet holds tag names as they appear in tag URLs, case preserved.
type TagSet map[string]struct{}

func (s TagSet) Add(name string) {
	s[name] = struct{}{}
}

// ContainsAny reports whether any of names is in the set, comparing whole
// names case-insensitively.
func (s TagSet) ContainsAny(names []string) bool {
	if len(names) == 0 || len(s) == 0 {
		return false
	}

	keys := make(map[string]struct{}, len(names))
	for _, name := range names {
		keys[foldKey(name)] = struct{}{}
	}

	for name := range s {
		if _, ok := keys[foldKey(name)]; ok {
			return true
		}
	}
	return false
}

// Error types

var ErrInvalidTagID = errors.New("invalid tag id")

// FetchError reports a feed that could not be retrieved. The cycle for
// that feed is abandoned without touching stored state.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedFeedWarning accompanies a partial entry list recovered from a
// body the Atom parser rejected.
type MalformedFeedWarning struct {
	URL       string
	Recovered int
	Err       error
}

func (w *MalformedFeedWarning) Error() string {
	return fmt.Sprintf("malformed feed %s (recovered %d entries): %v", w.URL, w.Recovered, w.Err)
}

func (w *MalformedFeedWarning) Unwrap() error {
	return w.Err
}
