package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/ao3-courier/app/database"
	"github.com/lysyi3m/ao3-courier/app/feed"
)

// SyncSubscriptionsTask writes the subscriptions declared in the YAML file to
// the store. It only adds; removing an entry from the file does not untrack.
type SyncSubscriptionsTask struct {
	Task
	cache            *feed.SubscriptionCache
	feedRepo         database.FeedRepository
	subscriptionRepo database.SubscriptionRepository
}

func NewSyncSubscriptionsTask(cache *feed.SubscriptionCache, feedRepo database.FeedRepository, subscriptionRepo database.SubscriptionRepository) *SyncSubscriptionsTask {
	return &SyncSubscriptionsTask{
		Task:             NewTask(TaskTypeSyncSubscriptions, ""),
		cache:            cache,
		feedRepo:         feedRepo,
		subscriptionRepo: subscriptionRepo,
	}
}

func (t *SyncSubscriptionsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var errs []error
	created := 0

	for _, config := range t.cache.GetSubscriptions() {
		isNew, err := t.sync(ctx, config)
		if err != nil {
			slog.Error("Failed to sync subscription", "feed", config.Tag, "destination", config.Destination, "error", err)
			errs = append(errs, fmt.Errorf("%s -> %s: %w", config.Tag, config.Destination, err))
			continue
		}
		if isNew {
			created++
		}
	}

	slog.Info("Task completed",
		"type", "SyncSubscriptions",
		"duration", t.GetDuration(),
		"total", t.cache.GetSubscriptionCount(),
		"created", created,
		"failed", len(errs))

	return errors.Join(errs...)
}

func (t *SyncSubscriptionsTask) sync(ctx context.Context, config feed.SubscriptionConfig) (bool, error) {
	trackedFeed, err := t.feedRepo.GetOrCreateFeed(ctx, config.Tag)
	if err != nil {
		return false, err
	}

	subscription, created, err := t.subscriptionRepo.CreateSubscription(ctx, trackedFeed.ID, config.Destination, config.Owner)
	if err != nil {
		return false, err
	}

	for _, name := range config.Exclude {
		if _, err := t.subscriptionRepo.AddExcludedTag(ctx, subscription.ID, name); err != nil {
			return created, err
		}
	}

	return created, nil
}
