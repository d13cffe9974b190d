package feed

import (
	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// A Caser is stateful, so each call gets its own.
func foldKey(s string) string {
	return cases.Fold().String(s)
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run drops entries carrying any excluded tag name. Names are compared
// case-insensitively as whole names, never as substrings.
func (f *Filterer) Run(entries []Entry, excluded []string) []Entry {
	if len(excluded) == 0 {
		return entries
	}

	return lo.Filter(entries, func(entry Entry, _ int) bool {
		return !entry.TagNames.ContainsAny(excluded)
	})
}
