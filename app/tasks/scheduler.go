package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lysyi3m/ao3-courier/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskTimeout = 5 * time.Minute

type Status struct {
	Running             bool       `json:"running"`
	Interval            string     `json:"interval"`
	LastCycleStartedAt  *time.Time `json:"last_cycle_started_at"`
	LastCycleFinishedAt *time.Time `json:"last_cycle_finished_at"`
	LastCycleFeeds      int        `json:"last_cycle_feeds"`
	QueuedTasks         int        `json:"queued_tasks"`
}

// Scheduler runs polling cycles on a single goroutine: one cycle at start,
// then one per interval. Tasks enqueued from outside run between cycles, so
// no two feeds are ever processed at the same time.
type Scheduler struct {
	pipeline          *Pipeline
	subscriptionCache *feed.SubscriptionCache
	interval          time.Duration
	feedDelay         time.Duration
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	taskQueue         chan TaskInterface

	mu     sync.RWMutex
	status Status
}

func NewScheduler(pipeline *Pipeline, subscriptionCache *feed.SubscriptionCache, interval, feedDelay time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		pipeline:          pipeline,
		subscriptionCache: subscriptionCache,
		interval:          interval,
		feedDelay:         feedDelay,
		ctx:               ctx,
		cancel:            cancel,
		taskQueue:         make(chan TaskInterface, 100),
		status:            Status{Interval: interval.String()},
	}
}

func (s *Scheduler) Start() {
	s.setRunning(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.setRunning(false)

		// Cycles start interval apart, however long each one runs.
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runStartupTasks()
		s.RunCycle(s.ctx)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.RunCycle(s.ctx)
			case task := <-s.taskQueue:
				s.executeTask(s.ctx, task)
			}
		}
	}()
}

// Stop cancels the loop and waits for it. A cycle already in progress runs
// to the end first.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) EnqueuePoll(tagID string) error {
	return s.EnqueueTask(NewPollFeedTask(tagID, s.pipeline))
}

func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	status.QueuedTasks = len(s.taskQueue)
	return status
}

// RunCycle polls every tracked feed once, in id order, pausing feedDelay
// between feeds. A cycle that has started is not interrupted by cancelling
// ctx; a cancelled ctx only prevents a new cycle from starting.
func (s *Scheduler) RunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Polling cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if ctx.Err() != nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	started := time.Now()
	s.mu.Lock()
	s.status.LastCycleStartedAt = &started
	s.mu.Unlock()

	feeds, err := s.pipeline.Feeds.GetAllFeeds(ctx)
	if err != nil {
		slog.Error("Failed to list feeds", "error", err)
		return
	}

	slog.Info("Polling cycle started", "feeds", len(feeds))

	polled := 0
	for i, trackedFeed := range feeds {
		if i > 0 && s.feedDelay > 0 {
			time.Sleep(s.feedDelay)
		}

		s.executeTask(ctx, NewPollFeedTask(trackedFeed.TagID, s.pipeline))
		polled++
	}

	finished := time.Now()
	cycleDuration.Observe(finished.Sub(started).Seconds())
	lastCycleTimestamp.Set(float64(finished.Unix()))

	s.mu.Lock()
	s.status.LastCycleFinishedAt = &finished
	s.status.LastCycleFeeds = polled
	s.mu.Unlock()

	slog.Info("Polling cycle completed", "feeds", polled, "duration", finished.Sub(started))
}

func (s *Scheduler) runStartupTasks() {
	if s.subscriptionCache == nil || s.subscriptionCache.GetSubscriptionCount() == 0 {
		slog.Debug("No subscriptions file entries to sync")
		return
	}

	s.executeTask(s.ctx, NewSyncSubscriptionsTask(s.subscriptionCache, s.pipeline.Feeds, s.pipeline.Subscriptions))
}

// executeTask runs a task to completion even if ctx is cancelled meanwhile;
// only taskTimeout bounds it. Panics are contained here.
func (s *Scheduler) executeTask(ctx context.Context, task TaskInterface) {
	defer func() {
		if r := recover(); r != nil {
			pollsTotal.WithLabelValues("panic").Inc()
			slog.Error("Task panicked", "type", string(task.GetType()), "feed", task.GetTagID(), "id", task.GetID(), "panic", r, "stack", string(debug.Stack()))
		}
	}()

	task.Start()

	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "feed", task.GetTagID(), "id", task.GetID(), "duration", task.GetDuration(), "error", err)
	}
}

func (s *Scheduler) setRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = running
}
