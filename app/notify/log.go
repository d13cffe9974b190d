package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes rendered messages to the log instead of sending them.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Deliver(ctx context.Context, delivery Delivery) error {
	msg := Render(delivery.Entry)

	attrs := []any{
		"destination", delivery.Destination,
		"subscription_id", delivery.SubscriptionID,
		"entry_id", delivery.Entry.ID,
		"title", msg.Title,
		"url", msg.URL,
		"author", msg.Author.Name,
	}
	for _, field := range msg.Fields {
		attrs = append(attrs, field.Name, field.Value)
	}

	slog.InfoContext(ctx, "New entry", attrs...)

	return nil
}
