package database

import (
	"context"
	"time"
)

type FeedRepository interface {
	GetOrCreateFeed(ctx context.Context, tagID string) (*Feed, error)
	GetFeedByTagID(ctx context.Context, tagID string) (*Feed, error)
	GetAllFeeds(ctx context.Context) ([]Feed, error)
	GetFeedCount(ctx context.Context) (int, error)

	// UpdateFeedPosition records a completed poll. A nil marker leaves the
	// stored marker untouched.
	UpdateFeedPosition(ctx context.Context, feedID int64, marker *string, polledAt time.Time) error
	DeleteFeed(ctx context.Context, feedID int64) error
}

type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, feedID int64, destination, ownerID string) (*Subscription, bool, error)
	DeleteSubscription(ctx context.Context, feedID int64, destination string) (bool, error)
	GetSubscription(ctx context.Context, subscriptionID int64) (*Subscription, error)
	GetSubscriptionsByFeed(ctx context.Context, feedID int64) ([]Subscription, error)
	GetSubscriptionsByDestination(ctx context.Context, destination string) ([]Subscription, error)
	GetSubscriptionCount(ctx context.Context) (int, error)

	AddExcludedTag(ctx context.Context, subscriptionID int64, tagName string) (bool, error)
	RemoveExcludedTag(ctx context.Context, subscriptionID int64, tagName string) (bool, error)
}

// DeliveryRepository is the at-most-once gate between the poller and the
// notifier. Check and record are separate statements.
type DeliveryRepository interface {
	IsDelivered(ctx context.Context, subscriptionID int64, entryID string) (bool, error)
	RecordDelivery(ctx context.Context, subscriptionID int64, entryID string) error
	CountDeliveries(ctx context.Context, subscriptionID int64) (int, error)
	GetDeliveryCount(ctx context.Context) (int, error)
}
