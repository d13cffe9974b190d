package database

import (
	"context"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

type deliveryRepository struct {
	db *DB
}

func NewDeliveryRepository(db *DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) IsDelivered(ctx context.Context, subscriptionID int64, entryID string) (bool, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("1").
		From("delivered_entries").
		Where(sb.Equal("subscription_id", subscriptionID), sb.Equal("entry_id", entryID)).
		Limit(1)

	query, args := sb.Build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to check delivery: %w", err)
	}
	defer rows.Close()

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to check delivery: %w", err)
	}

	return found, nil
}

// RecordDelivery is a no-op for a pair that is already recorded.
func (r *deliveryRepository) RecordDelivery(ctx context.Context, subscriptionID int64, entryID string) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertIgnoreInto("delivered_entries").
		Cols("subscription_id", "entry_id", "delivered_at").
		Values(subscriptionID, entryID, time.Now().UTC().Unix())

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	return nil
}

func (r *deliveryRepository) CountDeliveries(ctx context.Context, subscriptionID int64) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("delivered_entries").Where(sb.Equal("subscription_id", subscriptionID))

	query, args := sb.Build()
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}

	return count, nil
}

func (r *deliveryRepository) GetDeliveryCount(ctx context.Context) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("delivered_entries")

	query, args := sb.Build()
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}

	return count, nil
}
