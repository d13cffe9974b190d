package api

import (
	"github.com/lysyi3m/ao3-courier/app/database"
	"github.com/lysyi3m/ao3-courier/app/tasks"
)

// Limits caps what the management API lets callers create. Zero disables a cap.
type Limits struct {
	MaxSubscriptionsPerDestination int
	MaxFeeds                       int
}

type Handler struct {
	feedRepo         database.FeedRepository
	subscriptionRepo database.SubscriptionRepository
	deliveryRepo     database.DeliveryRepository
	scheduler        tasks.TaskSchedulerInterface
	siteURL          string
	version          string
	limits           Limits
}

type createSubscriptionRequest struct {
	Tag         string `json:"tag" binding:"required"` // tag identifier or feed URL
	Destination string `json:"destination" binding:"required"`
	Owner       string `json:"owner"`
}

type excludedTagRequest struct {
	TagName string `json:"tag_name" binding:"required"`
}

type subscriptionResponse struct {
	ID           int64    `json:"id"`
	Tag          string   `json:"tag"`
	FeedURL      string   `json:"feed_url"`
	Destination  string   `json:"destination"`
	Owner        string   `json:"owner"`
	ExcludedTags []string `json:"excluded_tags"`
	CreatedAt    string   `json:"created_at"`
}
