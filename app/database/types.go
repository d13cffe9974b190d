package database

import (
	"time"
)

type Feed struct {
	ID           int64
	TagID        string
	LastEntryID  *string // position marker: newest entry already accounted for
	LastPolledAt *time.Time
	CreatedAt    time.Time
}

type Subscription struct {
	ID           int64
	FeedID       int64
	TagID        string
	Destination  string
	OwnerID      string
	ExcludedTags []string
	CreatedAt    time.Time
}
