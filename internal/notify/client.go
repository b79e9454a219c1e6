package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// DefaultTimeout bounds notification round-trips. Notifications are fired
// after the order is already committed, so a short timeout is preferable to
// holding the request open.
const DefaultTimeout = 3 * time.Second

var _ Notifier = (*Client)(nil)

// Client implements Notifier against the notification service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a notification Client. A non-positive timeout falls back
// to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type notificationJSON struct {
	OrderID   string `json:"orderId"`
	Recipient string `json:"recipient"`
	Kind      string `json:"kind"`
}

// Notify POSTs the notification to the notification service.
func (c *Client) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(notificationJSON{
		OrderID:   n.OrderID,
		Recipient: n.Recipient,
		Kind:      string(n.Kind),
	})
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/notifications", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create notification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "notification request")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("notification service returned status %d", resp.StatusCode)
	}
	return nil
}
