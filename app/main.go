package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/ao3-courier/app/api"
	"github.com/lysyi3m/ao3-courier/app/cfg"
	"github.com/lysyi3m/ao3-courier/app/database"
	"github.com/lysyi3m/ao3-courier/app/feed"
	"github.com/lysyi3m/ao3-courier/app/notify"
	"github.com/lysyi3m/ao3-courier/app/tasks"
)

const shutdownGrace = 2 * time.Minute

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appConfig == nil {
		// --help
		return
	}

	setupLogger(appConfig.Debug)

	if err := run(appConfig); err != nil {
		slog.Error("AO3 Courier stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appConfig *cfg.Cfg) error {
	slog.Info("Starting AO3 Courier", "version", appConfig.Version, "notifier", appConfig.Notifier)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Database ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	subscriptionCache := feed.NewSubscriptionCache(appConfig.SubscriptionsFile)
	if err := subscriptionCache.Run(); err != nil {
		return fmt.Errorf("failed to load subscriptions file: %w", err)
	}

	httpClient := &http.Client{}

	var notifier notify.Notifier
	switch appConfig.Notifier {
	case cfg.NotifierWebhook:
		notifier = notify.NewWebhookNotifier(httpClient, appConfig.UserAgent, notify.DefaultDeliveryTimeout)
	default:
		notifier = notify.NewLogNotifier()
	}

	pipeline := &tasks.Pipeline{
		SiteURL:       appConfig.FeedBaseURL,
		Fetcher:       feed.NewFetcher(httpClient, appConfig.UserAgent, appConfig.FetchTimeout),
		Parser:        feed.NewParser(feed.NewExtractor(appConfig.FeedBaseURL)),
		Filterer:      feed.NewFilterer(),
		Notifier:      notifier,
		Feeds:         database.NewFeedRepository(db),
		Subscriptions: database.NewSubscriptionRepository(db),
		Deliveries:    database.NewDeliveryRepository(db),
	}

	scheduler := tasks.NewScheduler(pipeline, subscriptionCache, appConfig.PollingInterval, appConfig.FeedDelay)
	scheduler.Start()
	slog.Info("Scheduler started", "interval", appConfig.PollingInterval, "feed_delay", appConfig.FeedDelay)

	handler := api.NewHandler(pipeline.Feeds, pipeline.Subscriptions, pipeline.Deliveries, scheduler,
		appConfig.FeedBaseURL, appConfig.Version, api.Limits{
			MaxSubscriptionsPerDestination: appConfig.MaxSubscriptionsPerDestination,
			MaxFeeds:                       appConfig.MaxFeeds,
		})

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      api.NewServer(handler, appConfig.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port, "api_enabled", appConfig.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// The cycle in progress runs to the end, bounded by the grace period
	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		slog.Info("AO3 Courier shutdown complete")
	case <-time.After(shutdownGrace):
		slog.Warn("Polling cycle still running, exiting anyway", "grace", shutdownGrace)
	}

	return runErr
}
