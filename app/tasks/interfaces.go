package tasks

import (
	"github.com/lysyi3m/ao3-courier/app/database"
	"github.com/lysyi3m/ao3-courier/app/feed"
	"github.com/lysyi3m/ao3-courier/app/notify"
)

// TaskSchedulerInterface is what the API needs from the scheduler.
//
//	scheduler := NewScheduler(pipeline, subscriptionCache, interval, feedDelay)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueuePoll("Fluff")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueuePoll(tagID string) error
	Status() Status
}

// Pipeline bundles the collaborators a poll needs. It is built once in main
// and shared by every task.
type Pipeline struct {
	SiteURL string

	Fetcher  *feed.Fetcher
	Parser   *feed.Parser
	Filterer *feed.Filterer
	Notifier notify.Notifier

	Feeds         database.FeedRepository
	Subscriptions database.SubscriptionRepository
	Deliveries    database.DeliveryRepository
}
