package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/ao3-courier/app/database"
	"github.com/lysyi3m/ao3-courier/app/feed"
	"github.com/lysyi3m/ao3-courier/app/notify"
)

type PollResult struct {
	Total     int
	New       int
	Delivered int
	Skipped   int // already delivered
	Failed    int
}

// PollFeedTask runs one feed through fetch, detection and delivery, then
// advances the feed's marker.
type PollFeedTask struct {
	Task
	pipeline *Pipeline
	Result   PollResult
}

func NewPollFeedTask(tagID string, pipeline *Pipeline) *PollFeedTask {
	return &PollFeedTask{
		Task:     NewTask(TaskTypePollFeed, tagID),
		pipeline: pipeline,
	}
}

func (t *PollFeedTask) Execute(ctx context.Context) error {
	p := t.pipeline

	trackedFeed, err := p.Feeds.GetFeedByTagID(ctx, t.TagID)
	if err != nil {
		pollsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load feed: %w", err)
	}
	if trackedFeed == nil {
		slog.Warn("Feed no longer tracked, skipping", "feed", t.TagID)
		return nil
	}

	url := feed.FeedURL(p.SiteURL, trackedFeed.TagID)

	data, err := p.Fetcher.Run(ctx, url)
	if err != nil {
		pollsTotal.WithLabelValues("fetch_error").Inc()
		return err
	}

	entries, err := p.Parser.Run(url, data)
	if err != nil {
		var warning *feed.MalformedFeedWarning
		if !errors.As(err, &warning) {
			pollsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to parse feed: %w", err)
		}
		malformedFeedsTotal.Inc()
		slog.Warn("Malformed feed, continuing with recovered entries", "feed", t.TagID, "recovered", warning.Recovered, "error", warning.Err)
	}

	ordered := feed.SortNewestFirst(entries)
	fresh := feed.NewEntries(ordered, trackedFeed.LastEntryID)

	t.Result.Total = len(ordered)
	t.Result.New = len(fresh)
	newEntriesTotal.Add(float64(len(fresh)))

	if len(fresh) > 0 {
		subscriptions, err := p.Subscriptions.GetSubscriptionsByFeed(ctx, trackedFeed.ID)
		if err != nil {
			pollsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to load subscriptions: %w", err)
		}

		if len(subscriptions) == 0 {
			slog.Debug("Feed has no subscribers", "feed", t.TagID, "new", len(fresh))
		}

		for _, subscription := range subscriptions {
			t.deliver(ctx, subscription, fresh)
		}
	}

	// The marker moves to the newest entry whether or not anything was
	// delivered. An empty feed leaves it where it was.
	var marker *string
	if len(ordered) > 0 {
		marker = &ordered[0].ID
	}

	if err := p.Feeds.UpdateFeedPosition(ctx, trackedFeed.ID, marker, time.Now().UTC()); err != nil {
		pollsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to update feed position: %w", err)
	}

	pollsTotal.WithLabelValues("ok").Inc()

	slog.Info("Task completed",
		"type", "PollFeed",
		"feed", t.TagID,
		"duration", t.GetDuration(),
		"total", t.Result.Total,
		"new", t.Result.New,
		"delivered", t.Result.Delivered,
		"skipped", t.Result.Skipped,
		"failed", t.Result.Failed)

	return nil
}

// deliver sends entries newest first to one subscription. Each entry is
// checked before sending and recorded only after the notifier accepted it.
func (t *PollFeedTask) deliver(ctx context.Context, subscription database.Subscription, entries []feed.Entry) {
	p := t.pipeline

	for _, entry := range p.Filterer.Run(entries, subscription.ExcludedTags) {
		delivered, err := p.Deliveries.IsDelivered(ctx, subscription.ID, entry.ID)
		if err != nil {
			slog.Error("Failed to check delivery", "feed", t.TagID, "subscription_id", subscription.ID, "entry_id", entry.ID, "error", err)
			t.Result.Failed++
			deliveriesTotal.WithLabelValues("error").Inc()
			continue
		}
		if delivered {
			t.Result.Skipped++
			deliveriesTotal.WithLabelValues("duplicate").Inc()
			continue
		}

		err = p.Notifier.Deliver(ctx, notify.Delivery{
			Entry:          entry,
			Destination:    subscription.Destination,
			SubscriptionID: subscription.ID,
		})
		if err != nil {
			slog.Warn("Delivery failed", "feed", t.TagID, "subscription_id", subscription.ID, "entry_id", entry.ID, "error", err)
			t.Result.Failed++
			deliveriesTotal.WithLabelValues("failed").Inc()
			continue
		}

		if err := p.Deliveries.RecordDelivery(ctx, subscription.ID, entry.ID); err != nil {
			slog.Error("Failed to record delivery", "feed", t.TagID, "subscription_id", subscription.ID, "entry_id", entry.ID, "error", err)
		}

		t.Result.Delivered++
		deliveriesTotal.WithLabelValues("delivered").Inc()
	}
}
