package matchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a read-only HTTP client for the match stats API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient returns a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// LatestMatch fetches the most recent match of the linked account. Returns
// nil with no error when the account has no matches yet.
func (c *Client) LatestMatch(ctx context.Context, accountID, region string) (*MatchRecord, error) {
	q := url.Values{}
	q.Set("account", accountID)
	q.Set("region", region)
	q.Set("count", "1")

	var matches []MatchRecord
	if err := c.getJSON(ctx, "/matches?"+q.Encode(), &matches); err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// Timeline fetches the event timeline for a match: clip specs plus raw
// events.
func (c *Client) Timeline(ctx context.Context, matchID, accountID, region string) (*Timeline, error) {
	q := url.Values{}
	q.Set("matchId", matchID)
	q.Set("account", accountID)
	q.Set("region", region)

	var tl Timeline
	if err := c.getJSON(ctx, "/timeline?"+q.Encode(), &tl); err != nil {
		return nil, err
	}
	return &tl, nil
}

// getJSON performs a GET, unwraps the uniform response envelope, and
// decodes the data payload into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("match api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("match api: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("match api: %s returned %d", path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("match api: decode envelope: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("match api: %s", env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("match api: decode data: %w", err)
		}
	}
	return nil
}
