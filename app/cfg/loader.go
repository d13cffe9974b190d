package cfg

import (
	"cmp"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	NotifierLog     = "log"
	NotifierWebhook = "webhook"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath            string `long:"db-path" env:"DB_PATH" default:"./ao3-courier.db" description:"SQLite database file"`
	SubscriptionsFile string `long:"subscriptions-file" env:"SUBSCRIPTIONS_FILE" description:"Optional YAML file with subscriptions to sync at startup"`

	// Polling
	PollingInterval int    `long:"polling-interval" env:"POLLING_INTERVAL" default:"3600" description:"Seconds between polling cycles"`
	FeedDelay       int    `long:"feed-delay" env:"FEED_DELAY" default:"2" description:"Seconds to wait between feeds within a cycle"`
	FetchTimeout    int    `long:"fetch-timeout" env:"FEED_FETCH_TIMEOUT" default:"30" description:"Seconds before a feed fetch is abandoned"`
	FeedBaseURL     string `long:"feed-base-url" env:"FEED_BASE_URL" default:"https://archiveofourown.org" description:"Site root used to build feed and tag URLs"`
	UserAgent       string `long:"user-agent" env:"USER_AGENT" default:"AO3 Courier/1.0" description:"User agent string for HTTP requests"`

	// Delivery
	Notifier string `long:"notifier" env:"NOTIFIER" default:"log" choice:"log" choice:"webhook" description:"Where new works are delivered"`

	// API
	Port                           string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey                   string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	MaxSubscriptionsPerDestination int    `long:"max-subscriptions" env:"MAX_SUBSCRIPTIONS_PER_DESTINATION" default:"50" description:"Subscriptions allowed per destination (0 disables the cap)"`
	MaxFeeds                       int    `long:"max-feeds" env:"MAX_FEEDS_GLOBAL" default:"1000" description:"Feeds tracked in total (0 disables the cap)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return parse(nil)
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:                         raw.DBPath,
		SubscriptionsFile:              raw.SubscriptionsFile,
		PollingInterval:                time.Duration(raw.PollingInterval) * time.Second,
		FeedDelay:                      time.Duration(raw.FeedDelay) * time.Second,
		FetchTimeout:                   time.Duration(raw.FetchTimeout) * time.Second,
		FeedBaseURL:                    strings.TrimRight(raw.FeedBaseURL, "/"),
		UserAgent:                      raw.UserAgent,
		Notifier:                       raw.Notifier,
		Port:                           raw.Port,
		APIAccessKey:                   raw.APIAccessKey,
		MaxSubscriptionsPerDestination: raw.MaxSubscriptionsPerDestination,
		MaxFeeds:                       raw.MaxFeeds,
		Timezone:                       raw.Timezone,
		Debug:                          raw.Debug,
		Version:                        GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.PollingInterval <= 0 {
		return fmt.Errorf("polling interval must be positive")
	}
	if cfg.FeedDelay < 0 {
		return fmt.Errorf("feed delay must not be negative")
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if cfg.MaxSubscriptionsPerDestination < 0 || cfg.MaxFeeds < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if !strings.HasPrefix(cfg.FeedBaseURL, "http://") && !strings.HasPrefix(cfg.FeedBaseURL, "https://") {
		return fmt.Errorf("feed base URL must be http(s): %q", cfg.FeedBaseURL)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
