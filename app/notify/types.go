package notify

import (
	"context"
	"fmt"

	"github.com/lysyi3m/ao3-courier/app/feed"
)

// Notifier delivers one entry to one subscription's destination. A nil error
// means the destination accepted the message.
type Notifier interface {
	Deliver(ctx context.Context, delivery Delivery) error
}

type Delivery struct {
	Entry          feed.Entry
	Destination    string
	SubscriptionID int64
}

type DeliveryError struct {
	Destination string
	StatusCode  int // zero when no response was received
	Err         error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery to %s failed with status %d: %v", e.Destination, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("delivery to %s failed: %v", e.Destination, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Message is the rendered form of an entry, shaped like a chat embed.
type Message struct {
	Title       string  `json:"title"`
	URL         string  `json:"url,omitempty"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Author      Author  `json:"author"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      Footer  `json:"footer"`
}

type Author struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Footer struct {
	Text string `json:"text"`
}
