package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const DefaultDeliveryTimeout = 15 * time.Second

type webhookPayload struct {
	Embeds []Message `json:"embeds"`
}

// WebhookNotifier POSTs the rendered message as JSON to the destination,
// which must be an absolute http(s) URL.
type WebhookNotifier struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewWebhookNotifier(httpClient *http.Client, userAgent string, timeout time.Duration) *WebhookNotifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}

	return &WebhookNotifier{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (n *WebhookNotifier) Deliver(ctx context.Context, delivery Delivery) error {
	target, err := url.Parse(delivery.Destination)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return &DeliveryError{Destination: delivery.Destination, Err: fmt.Errorf("destination is not an http(s) URL")}
	}

	body, err := json.Marshal(webhookPayload{Embeds: []Message{Render(delivery.Entry)}})
	if err != nil {
		return &DeliveryError{Destination: delivery.Destination, Err: fmt.Errorf("failed to encode payload: %w", err)}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Destination: delivery.Destination, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Destination: delivery.Destination, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{Destination: delivery.Destination, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
	}

	return nil
}
