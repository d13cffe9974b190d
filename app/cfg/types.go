package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath            string
	SubscriptionsFile string

	// Polling
	PollingInterval time.Duration
	FeedDelay       time.Duration
	FetchTimeout    time.Duration
	FeedBaseURL     string
	UserAgent       string

	// Delivery
	Notifier string

	// API
	Port                           string
	APIAccessKey                   string
	MaxSubscriptionsPerDestination int
	MaxFeeds                       int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
