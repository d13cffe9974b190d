package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/ao3-courier/app/database"
	"github.com/lysyi3m/ao3-courier/app/feed"
	"github.com/lysyi3m/ao3-courier/app/tasks"
	"github.com/samber/lo"
)

func NewHandler(feedRepo database.FeedRepository, subscriptionRepo database.SubscriptionRepository,
	deliveryRepo database.DeliveryRepository, scheduler tasks.TaskSchedulerInterface,
	siteURL, version string, limits Limits) *Handler {
	return &Handler{
		feedRepo:         feedRepo,
		subscriptionRepo: subscriptionRepo,
		deliveryRepo:     deliveryRepo,
		scheduler:        scheduler,
		siteURL:          siteURL,
		version:          version,
		limits:           limits,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"scheduler": h.scheduler.Status(),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(c.Request.Context()); err == nil {
		health["feeds"] = feedCount
	} else {
		slog.Error("Database error", "operation", "count_feeds", "error", err)
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := map[string]interface{}{
		"version":   h.version,
		"scheduler": h.scheduler.Status(),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(ctx); err == nil {
		stats["feeds"] = feedCount
	}
	if subscriptionCount, err := h.subscriptionRepo.GetSubscriptionCount(ctx); err == nil {
		stats["subscriptions"] = subscriptionCount
	}
	if deliveryCount, err := h.deliveryRepo.GetDeliveryCount(ctx); err == nil {
		stats["deliveries"] = deliveryCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	ctx := c.Request.Context()

	feeds, err := h.feedRepo.GetAllFeeds(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(feeds))
	for _, f := range feeds {
		info := h.feedInfo(f)
		if subscriptions, err := h.subscriptionRepo.GetSubscriptionsByFeed(ctx, f.ID); err == nil {
			info["subscriptions"] = len(subscriptions)
		}
		result = append(result, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": result,
		"total": len(result),
	})
}

func (h *Handler) APIGetFeedStatus(c *gin.Context) {
	ctx := c.Request.Context()

	f, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	subscriptions, err := h.subscriptionRepo.GetSubscriptionsByFeed(ctx, f.ID)
	if err != nil {
		slog.Error("Database error", "operation", "get_subscriptions", "feed", f.TagID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	details := h.feedInfo(*f)
	details["subscriptions"] = lo.Map(subscriptions, func(s database.Subscription, _ int) map[string]interface{} {
		info := map[string]interface{}{
			"subscription": h.subscriptionResponse(s),
		}
		if count, err := h.deliveryRepo.CountDeliveries(ctx, s.ID); err == nil {
			info["deliveries"] = count
		}
		return info
	})

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIPollFeed(c *gin.Context) {
	f, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	if err := h.scheduler.EnqueuePoll(f.TagID); err != nil {
		slog.Error("Error enqueueing poll task", "feed", f.TagID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue poll task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Poll enqueued",
		"feed":    h.feedInfo(*f),
	})
}

func (h *Handler) APIDeleteFeed(c *gin.Context) {
	f, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	if err := h.feedRepo.DeleteFeed(c.Request.Context(), f.ID); err != nil {
		slog.Error("Database error", "operation", "delete_feed", "feed", f.TagID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Feed deleted", "feed", f.TagID)
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIListSubscriptions(c *gin.Context) {
	destination := c.Query("destination")
	if destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing destination parameter"})
		return
	}

	subscriptions, err := h.subscriptionRepo.GetSubscriptionsByDestination(c.Request.Context(), destination)
	if err != nil {
		slog.Error("Database error", "operation", "list_subscriptions", "destination", destination, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": lo.Map(subscriptions, func(s database.Subscription, _ int) subscriptionResponse {
			return h.subscriptionResponse(s)
		}),
		"total": len(subscriptions),
	})
}

func (h *Handler) APICreateSubscription(c *gin.Context) {
	ctx := c.Request.Context()

	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	tagID, err := feed.ExtractTagID(req.Tag)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag", "details": err.Error()})
		return
	}

	existing, err := h.feedRepo.GetFeedByTagID(ctx, tagID)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", tagID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if existing == nil && h.limits.MaxFeeds > 0 {
		count, err := h.feedRepo.GetFeedCount(ctx)
		if err != nil {
			slog.Error("Database error", "operation", "count_feeds", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if count >= h.limits.MaxFeeds {
			c.JSON(http.StatusConflict, gin.H{"error": "Feed limit reached", "limit": h.limits.MaxFeeds})
			return
		}
	}

	if h.limits.MaxSubscriptionsPerDestination > 0 {
		current, err := h.subscriptionRepo.GetSubscriptionsByDestination(ctx, req.Destination)
		if err != nil {
			slog.Error("Database error", "operation", "list_subscriptions", "destination", req.Destination, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		alreadySubscribed := lo.ContainsBy(current, func(s database.Subscription) bool { return s.TagID == tagID })
		if !alreadySubscribed && len(current) >= h.limits.MaxSubscriptionsPerDestination {
			c.JSON(http.StatusConflict, gin.H{"error": "Subscription limit reached", "limit": h.limits.MaxSubscriptionsPerDestination})
			return
		}
	}

	f, err := h.feedRepo.GetOrCreateFeed(ctx, tagID)
	if err != nil {
		slog.Error("Database error", "operation", "create_feed", "feed", tagID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	subscription, created, err := h.subscriptionRepo.CreateSubscription(ctx, f.ID, req.Destination, req.Owner)
	if err != nil {
		slog.Error("Database error", "operation", "create_subscription", "feed", tagID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		slog.Info("Subscription created", "feed", tagID, "destination", req.Destination, "subscription_id", subscription.ID)
	}

	c.JSON(status, h.subscriptionResponse(*subscription))
}

func (h *Handler) APIDeleteSubscription(c *gin.Context) {
	ctx := c.Request.Context()

	destination := c.Query("destination")
	if destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing destination parameter"})
		return
	}

	tagID, err := feed.ExtractTagID(c.Query("tag"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag", "details": err.Error()})
		return
	}

	f, err := h.feedRepo.GetFeedByTagID(ctx, tagID)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", tagID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	h.deleteSubscription(c, f.ID, tagID, destination)
}

func (h *Handler) APIDeleteSubscriptionByID(c *gin.Context) {
	subscription, ok := h.lookupSubscription(c)
	if !ok {
		return
	}

	h.deleteSubscription(c, subscription.FeedID, subscription.TagID, subscription.Destination)
}

func (h *Handler) deleteSubscription(c *gin.Context, feedID int64, tagID, destination string) {
	deleted, err := h.subscriptionRepo.DeleteSubscription(c.Request.Context(), feedID, destination)
	if err != nil {
		slog.Error("Database error", "operation", "delete_subscription", "feed", tagID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	slog.Info("Subscription deleted", "feed", tagID, "destination", destination)
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIAddExcludedTag(c *gin.Context) {
	subscription, ok := h.lookupSubscription(c)
	if !ok {
		return
	}

	var req excludedTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	added, err := h.subscriptionRepo.AddExcludedTag(c.Request.Context(), subscription.ID, req.TagName)
	if err != nil {
		slog.Error("Database error", "operation", "add_excluded_tag", "subscription_id", subscription.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	h.respondWithSubscription(c, subscription.ID, lo.Ternary(added, http.StatusCreated, http.StatusOK))
}

func (h *Handler) APIRemoveExcludedTag(c *gin.Context) {
	subscription, ok := h.lookupSubscription(c)
	if !ok {
		return
	}

	tagName := c.Query("tag_name")
	if tagName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tag_name parameter"})
		return
	}

	removed, err := h.subscriptionRepo.RemoveExcludedTag(c.Request.Context(), subscription.ID, tagName)
	if err != nil {
		slog.Error("Database error", "operation", "remove_excluded_tag", "subscription_id", subscription.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Excluded tag not found"})
		return
	}

	h.respondWithSubscription(c, subscription.ID, http.StatusOK)
}

func (h *Handler) respondWithSubscription(c *gin.Context, subscriptionID int64, status int) {
	subscription, err := h.subscriptionRepo.GetSubscription(c.Request.Context(), subscriptionID)
	if err != nil || subscription == nil {
		slog.Error("Database error", "operation", "get_subscription", "subscription_id", subscriptionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(status, h.subscriptionResponse(*subscription))
}

func (h *Handler) lookupFeed(c *gin.Context) (*database.Feed, bool) {
	tagID, err := feed.ExtractTagID(c.Param("tag"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag", "details": err.Error()})
		return nil, false
	}

	f, err := h.feedRepo.GetFeedByTagID(c.Request.Context(), tagID)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", tagID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not tracked"})
		return nil, false
	}

	return f, true
}

func (h *Handler) lookupSubscription(c *gin.Context) (*database.Subscription, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription id"})
		return nil, false
	}

	subscription, err := h.subscriptionRepo.GetSubscription(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_subscription", "subscription_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if subscription == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return nil, false
	}

	return subscription, true
}

func (h *Handler) feedInfo(f database.Feed) map[string]interface{} {
	info := map[string]interface{}{
		"tag":            f.TagID,
		"url":            feed.FeedURL(h.siteURL, f.TagID),
		"last_entry_id":  f.LastEntryID,
		"last_polled_at": f.LastPolledAt,
		"created_at":     f.CreatedAt,
	}
	return info
}

func (h *Handler) subscriptionResponse(s database.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:           s.ID,
		Tag:          s.TagID,
		FeedURL:      feed.FeedURL(h.siteURL, s.TagID),
		Destination:  s.Destination,
		Owner:        s.OwnerID,
		ExcludedTags: lo.Ternary(s.ExcludedTags == nil, []string{}, s.ExcludedTags),
		CreatedAt:    s.CreatedAt.In(time.Local).Format(time.RFC3339),
	}
}
