package feed

import (
	"slices"
)

// SortNewestFirst orders entries by updated, else published, timestamp,
// newest first. Entries with no timestamp sort last. The sort is stable so
// polls of an unchanged feed produce the same order every time.
func SortNewestFirst(entries []Entry) []Entry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return b.sortKey().Compare(a.sortKey())
	})
	return sorted
}

// NewEntries returns the entries strictly newer than marker in an ordered
// list.
//
// With no marker (first poll of a feed) every entry is new. When marker is
// set but no longer present in the list, the whole list is treated as new
// too; delivery records keep that from turning into repeat deliveries.
func NewEntries(ordered []Entry, marker *string) []Entry {
	if marker == nil {
		return ordered
	}

	idx := slices.IndexFunc(ordered, func(e Entry) bool {
		return e.ID == *marker
	})
	if idx < 0 {
		return ordered
	}

	return ordered[:idx]
}
