package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimited is returned when every allowed attempt was answered with
// HTTP 429.
var ErrRateLimited = errors.New("rate limited")

// maxAttempts caps how many retries a rate-limited fetch earns. The initial
// request does not count, so at most four requests hit the wire.
const maxAttempts = 3

const defaultRetryUnit = 2 * time.Second

// Client fetches the stats endpoint. Rate-limit responses are retried with a
// delay growing linearly per attempt; everything else is terminal for the
// call, and the caller decides whether to fall back to stale data.
type Client struct {
	baseURL string
	client  *http.Client
	unit    time.Duration
}

// NewClient creates a stats client for the service at baseURL. unit is the
// base retry delay, multiplied by the attempt number; zero means two seconds.
func NewClient(baseURL string, unit time.Duration) Client {
	if unit <= 0 {
		unit = defaultRetryUnit
	}
	return Client{
		baseURL: baseURL,
		client:  &http.Client{},
		unit:    unit,
	}
}

// Overview fetches the aggregate counters, unwrapping the endpoint's data
// envelope.
func (c Client) Overview(ctx context.Context) (Overview, error) {
	var payload struct {
		Data Overview `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/stats", &payload); err != nil {
		return Overview{}, err
	}
	return payload.Data, nil
}

// getJSON issues the GET, waiting (attempt+1) x unit after each 429 before
// trying again, up to maxAttempts retries. A non-429 failure returns
// immediately: only rate limiting earns a retry.
func (c Client) getJSON(ctx context.Context, path string, out any) error {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("error sending request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			if attempt >= maxAttempts {
				return fmt.Errorf("%s: %w", path, ErrRateLimited)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * c.unit):
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
		return nil
	}
}
