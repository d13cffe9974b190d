package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	return db
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestFeedRepositoryGetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedRepository(newTestDB(t))

	first, err := repo.GetOrCreateFeed(ctx, "Fluff")
	require.NoError(t, err)
	assert.Equal(t, "Fluff", first.TagID)
	assert.Nil(t, first.LastEntryID)
	assert.Nil(t, first.LastPolledAt)

	second, err := repo.GetOrCreateFeed(ctx, "Fluff")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := repo.GetFeedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFeedRepositoryGetMissingFeed(t *testing.T) {
	repo := NewFeedRepository(newTestDB(t))

	feed, err := repo.GetFeedByTagID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, feed)
}

func TestFeedRepositoryUpdatePosition(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedRepository(newTestDB(t))

	feed, err := repo.GetOrCreateFeed(ctx, "Angst")
	require.NoError(t, err)

	polledAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	marker := "entry-3"
	require.NoError(t, repo.UpdateFeedPosition(ctx, feed.ID, &marker, polledAt))

	updated, err := repo.GetFeedByTagID(ctx, "Angst")
	require.NoError(t, err)
	require.NotNil(t, updated.LastEntryID)
	assert.Equal(t, "entry-3", *updated.LastEntryID)
	require.NotNil(t, updated.LastPolledAt)
	assert.True(t, updated.LastPolledAt.Equal(polledAt))

	// A nil marker only records the poll time
	later := polledAt.Add(time.Hour)
	require.NoError(t, repo.UpdateFeedPosition(ctx, feed.ID, nil, later))

	updated, err = repo.GetFeedByTagID(ctx, "Angst")
	require.NoError(t, err)
	assert.Equal(t, "entry-3", *updated.LastEntryID)
	assert.True(t, updated.LastPolledAt.Equal(later))
}

func TestFeedRepositoryGetAllFeedsOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedRepository(newTestDB(t))

	for _, tag := range []string{"c", "a", "b"} {
		_, err := repo.GetOrCreateFeed(ctx, tag)
		require.NoError(t, err)
	}

	feeds, err := repo.GetAllFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 3)
	assert.Equal(t, "c", feeds[0].TagID)
	assert.Equal(t, "a", feeds[1].TagID)
	assert.Equal(t, "b", feeds[2].TagID)
}

func TestSubscriptionRepositoryCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	subs := NewSubscriptionRepository(db)

	feed, err := feeds.GetOrCreateFeed(ctx, "Fluff")
	require.NoError(t, err)

	sub, created, err := subs.CreateSubscription(ctx, feed.ID, "https://hooks.example.com/a", "owner-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Fluff", sub.TagID)
	assert.Equal(t, "owner-1", sub.OwnerID)

	again, created, err := subs.CreateSubscription(ctx, feed.ID, "https://hooks.example.com/a", "owner-2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sub.ID, again.ID)

	count, err := subs.GetSubscriptionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubscriptionRepositoryExcludedTags(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	subs := NewSubscriptionRepository(db)

	feed, err := feeds.GetOrCreateFeed(ctx, "Fluff")
	require.NoError(t, err)

	first, _, err := subs.CreateSubscription(ctx, feed.ID, "dest-1", "")
	require.NoError(t, err)
	second, _, err := subs.CreateSubscription(ctx, feed.ID, "dest-2", "")
	require.NoError(t, err)

	added, err := subs.AddExcludedTag(ctx, first.ID, "Angst")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = subs.AddExcludedTag(ctx, first.ID, "angst")
	require.NoError(t, err)
	assert.False(t, added, "tag names are unique regardless of case")

	_, err = subs.AddExcludedTag(ctx, second.ID, "Major Character Death")
	require.NoError(t, err)

	list, err := subs.GetSubscriptionsByFeed(ctx, feed.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, []string{"Angst"}, list[0].ExcludedTags)
	assert.Equal(t, []string{"Major Character Death"}, list[1].ExcludedTags)

	removed, err := subs.RemoveExcludedTag(ctx, first.ID, "ANGST")
	require.NoError(t, err)
	assert.True(t, removed)

	sub, err := subs.GetSubscription(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, sub.ExcludedTags)
}

func TestSubscriptionRepositoryByDestinationAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	subs := NewSubscriptionRepository(db)

	fluff, err := feeds.GetOrCreateFeed(ctx, "Fluff")
	require.NoError(t, err)
	angst, err := feeds.GetOrCreateFeed(ctx, "Angst")
	require.NoError(t, err)

	_, _, err = subs.CreateSubscription(ctx, fluff.ID, "dest", "")
	require.NoError(t, err)
	_, _, err = subs.CreateSubscription(ctx, angst.ID, "dest", "")
	require.NoError(t, err)

	list, err := subs.GetSubscriptionsByDestination(ctx, "dest")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Fluff", list[0].TagID)
	assert.Equal(t, "Angst", list[1].TagID)

	deleted, err := subs.DeleteSubscription(ctx, fluff.ID, "dest")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = subs.DeleteSubscription(ctx, fluff.ID, "dest")
	require.NoError(t, err)
	assert.False(t, deleted)

	missing, err := subs.GetSubscription(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteFeedCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	subs := NewSubscriptionRepository(db)
	deliveries := NewDeliveryRepository(db)

	feed, err := feeds.GetOrCreateFeed(ctx, "Fluff")
	require.NoError(t, err)
	sub, _, err := subs.CreateSubscription(ctx, feed.ID, "dest", "")
	require.NoError(t, err)
	require.NoError(t, deliveries.RecordDelivery(ctx, sub.ID, "abc"))

	require.NoError(t, feeds.DeleteFeed(ctx, feed.ID))

	count, err := subs.GetSubscriptionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	total, err := deliveries.GetDeliveryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestDeliveryRepositoryRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	subs := NewSubscriptionRepository(db)
	deliveries := NewDeliveryRepository(db)

	feed, err := feeds.GetOrCreateFeed(ctx, "Fluff")
	require.NoError(t, err)
	sub, _, err := subs.CreateSubscription(ctx, feed.ID, "dest", "")
	require.NoError(t, err)

	delivered, err := deliveries.IsDelivered(ctx, sub.ID, "abc")
	require.NoError(t, err)
	assert.False(t, delivered)

	require.NoError(t, deliveries.RecordDelivery(ctx, sub.ID, "abc"))
	require.NoError(t, deliveries.RecordDelivery(ctx, sub.ID, "abc"))

	count, err := deliveries.CountDeliveries(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	delivered, err = deliveries.IsDelivered(ctx, sub.ID, "abc")
	require.NoError(t, err)
	assert.True(t, delivered)

	delivered, err = deliveries.IsDelivered(ctx, sub.ID, "other")
	require.NoError(t, err)
	assert.False(t, delivered)
}
