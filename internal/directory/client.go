package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
)

// DefaultTimeout bounds directory round-trips.
const DefaultTimeout = 3 * time.Second

var _ StoreDirectory = (*Client)(nil)

// Client implements StoreDirectory against the store service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a directory Client. A non-positive timeout falls back to
// DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type storeJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Client) get(ctx context.Context, storeID string) (*storeJSON, bool, error) {
	u := c.baseURL + "/api/stores/" + url.PathEscape(storeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "create store request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "store directory request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, false, errors.Errorf("store directory returned status %d", resp.StatusCode)
	}

	var st storeJSON
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, false, errors.Wrap(err, "decode store response")
	}
	return &st, true, nil
}

// Exists reports whether the store is known to the directory.
func (c *Client) Exists(ctx context.Context, storeID string) (bool, error) {
	_, ok, err := c.get(ctx, storeID)
	return ok, err
}

// ContactEmail returns the store's contact address, or empty when the store
// is unknown or has no contact on file.
func (c *Client) ContactEmail(ctx context.Context, storeID string) (string, error) {
	st, ok, err := c.get(ctx, storeID)
	if err != nil || !ok {
		return "", err
	}
	return st.Email, nil
}
