package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

var feedColumns = []string{"id", "tag_id", "last_entry_id", "last_polled_at", "created_at"}

type feedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) GetOrCreateFeed(ctx context.Context, tagID string) (*Feed, error) {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertIgnoreInto("feeds").Cols("tag_id", "created_at").Values(tagID, time.Now().UTC().Unix())

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert feed: %w", err)
	}

	feed, err := r.GetFeedByTagID(ctx, tagID)
	if err != nil {
		return nil, err
	}
	if feed == nil {
		return nil, fmt.Errorf("feed %s missing after insert", tagID)
	}

	return feed, nil
}

func (r *feedRepository) GetFeedByTagID(ctx context.Context, tagID string) (*Feed, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(feedColumns...).From("feeds").Where(sb.Equal("tag_id", tagID))

	query, args := sb.Build()
	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed %s: %w", tagID, err)
	}

	return feed, nil
}

func (r *feedRepository) GetAllFeeds(ctx context.Context) ([]Feed, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(feedColumns...).From("feeds").OrderBy("id").Asc()

	query, args := sb.Build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *feedRepository) GetFeedCount(ctx context.Context) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("feeds")

	query, args := sb.Build()
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}

	return count, nil
}

func (r *feedRepository) UpdateFeedPosition(ctx context.Context, feedID int64, marker *string, polledAt time.Time) error {
	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("feeds").Set(ub.Assign("last_polled_at", polledAt.UTC().Unix()))
	if marker != nil {
		ub.SetMore(ub.Assign("last_entry_id", *marker))
	}
	ub.Where(ub.Equal("id", feedID))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update feed position: %w", err)
	}

	return nil
}

func (r *feedRepository) DeleteFeed(ctx context.Context, feedID int64) error {
	db := sqlbuilder.SQLite.NewDeleteBuilder()
	db.DeleteFrom("feeds").Where(db.Equal("id", feedID))

	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var (
		feed       Feed
		lastEntry  sql.NullString
		lastPolled sql.NullInt64
		createdAt  int64
	)

	if err := row.Scan(&feed.ID, &feed.TagID, &lastEntry, &lastPolled, &createdAt); err != nil {
		return nil, err
	}

	if lastEntry.Valid {
		feed.LastEntryID = &lastEntry.String
	}
	if lastPolled.Valid {
		t := time.Unix(lastPolled.Int64, 0).UTC()
		feed.LastPolledAt = &t
	}
	feed.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &feed, nil
}
