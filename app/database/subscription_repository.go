package database

import (
	"context"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

var subscriptionColumns = []string{
	"subscriptions.id",
	"subscriptions.feed_id",
	"feeds.tag_id",
	"subscriptions.destination",
	"subscriptions.owner_id",
	"subscriptions.created_at",
}

type subscriptionRepository struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// CreateSubscription is idempotent on (feed, destination); the returned flag
// reports whether a new row was written.
func (r *subscriptionRepository) CreateSubscription(ctx context.Context, feedID int64, destination, ownerID string) (*Subscription, bool, error) {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertIgnoreInto("subscriptions").
		Cols("feed_id", "destination", "owner_id", "created_at").
		Values(feedID, destination, ownerID, time.Now().UTC().Unix())

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read insert result: %w", err)
	}

	sb := r.selectSubscriptions()
	sb.Where(sb.Equal("subscriptions.feed_id", feedID), sb.Equal("subscriptions.destination", destination))

	subscriptions, err := r.query(ctx, sb)
	if err != nil {
		return nil, false, err
	}
	if len(subscriptions) == 0 {
		return nil, false, fmt.Errorf("subscription for feed %d missing after insert", feedID)
	}

	return &subscriptions[0], affected > 0, nil
}

func (r *subscriptionRepository) DeleteSubscription(ctx context.Context, feedID int64, destination string) (bool, error) {
	db := sqlbuilder.SQLite.NewDeleteBuilder()
	db.DeleteFrom("subscriptions").Where(db.Equal("feed_id", feedID), db.Equal("destination", destination))

	query, args := db.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	return affected > 0, nil
}

func (r *subscriptionRepository) GetSubscription(ctx context.Context, subscriptionID int64) (*Subscription, error) {
	sb := r.selectSubscriptions()
	sb.Where(sb.Equal("subscriptions.id", subscriptionID))

	subscriptions, err := r.query(ctx, sb)
	if err != nil {
		return nil, err
	}
	if len(subscriptions) == 0 {
		return nil, nil
	}

	return &subscriptions[0], nil
}

// GetSubscriptionsByFeed returns the feed's subscriptions ordered by id, each
// with its exclusion set.
func (r *subscriptionRepository) GetSubscriptionsByFeed(ctx context.Context, feedID int64) ([]Subscription, error) {
	sb := r.selectSubscriptions()
	sb.Where(sb.Equal("subscriptions.feed_id", feedID))

	return r.query(ctx, sb)
}

func (r *subscriptionRepository) GetSubscriptionsByDestination(ctx context.Context, destination string) ([]Subscription, error) {
	sb := r.selectSubscriptions()
	sb.Where(sb.Equal("subscriptions.destination", destination))

	return r.query(ctx, sb)
}

func (r *subscriptionRepository) GetSubscriptionCount(ctx context.Context) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("subscriptions")

	query, args := sb.Build()
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	return count, nil
}

func (r *subscriptionRepository) AddExcludedTag(ctx context.Context, subscriptionID int64, tagName string) (bool, error) {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertIgnoreInto("excluded_tags").
		Cols("subscription_id", "tag_name", "created_at").
		Values(subscriptionID, tagName, time.Now().UTC().Unix())

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to add excluded tag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return affected > 0, nil
}

func (r *subscriptionRepository) RemoveExcludedTag(ctx context.Context, subscriptionID int64, tagName string) (bool, error) {
	db := sqlbuilder.SQLite.NewDeleteBuilder()
	db.DeleteFrom("excluded_tags").Where(db.Equal("subscription_id", subscriptionID), db.Equal("tag_name", tagName))

	query, args := db.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to remove excluded tag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	return affected > 0, nil
}

func (r *subscriptionRepository) selectSubscriptions() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(subscriptionColumns...).
		From("subscriptions").
		Join("feeds", "feeds.id = subscriptions.feed_id").
		OrderBy("subscriptions.id").Asc()
	return sb
}

func (r *subscriptionRepository) query(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]Subscription, error) {
	query, args := sb.Build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []Subscription
	for rows.Next() {
		var (
			sub       Subscription
			createdAt int64
		)
		if err := rows.Scan(&sub.ID, &sub.FeedID, &sub.TagID, &sub.Destination, &sub.OwnerID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		sub.CreatedAt = time.Unix(createdAt, 0).UTC()
		subscriptions = append(subscriptions, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	if err := r.attachExcludedTags(ctx, subscriptions); err != nil {
		return nil, err
	}

	return subscriptions, nil
}

func (r *subscriptionRepository) attachExcludedTags(ctx context.Context, subscriptions []Subscription) error {
	if len(subscriptions) == 0 {
		return nil
	}

	ids := lo.Map(subscriptions, func(s Subscription, _ int) int64 { return s.ID })

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("subscription_id", "tag_name").
		From("excluded_tags").
		Where(sb.In("subscription_id", lo.ToAnySlice(ids)...)).
		OrderBy("created_at", "tag_name").Asc()

	query, args := sb.Build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to get excluded tags: %w", err)
	}
	defer rows.Close()

	type excludedTag struct {
		subscriptionID int64
		name           string
	}

	var tags []excludedTag
	for rows.Next() {
		var tag excludedTag
		if err := rows.Scan(&tag.subscriptionID, &tag.name); err != nil {
			return fmt.Errorf("failed to scan excluded tag row: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating excluded tag rows: %w", err)
	}

	grouped := lo.GroupBy(tags, func(t excludedTag) int64 { return t.subscriptionID })
	for i := range subscriptions {
		subscriptions[i].ExcludedTags = lo.Map(grouped[subscriptions[i].ID], func(t excludedTag, _ int) string { return t.name })
	}

	return nil
}
