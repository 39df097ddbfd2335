package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newthinker/cryptodash/internal/core"
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// Client is the JSON-over-HTTP transport shared by all collectors. It keeps
// transport failures, bad statuses and undecodable bodies apart:
//   - transport failure: core.ErrNetwork
//   - non-2xx status: core.ErrNetwork wrapping *StatusError
//   - body that is not valid JSON for out: core.ErrMalformedResponse
type Client struct {
	client  *http.Client
	headers map[string]string
}

// NewClient creates a client. A zero timeout leaves the transport default in
// place.
func NewClient(timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		headers: headers,
	}
}

// GetJSON implements Getter.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.WrapError(core.ErrNetwork, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return core.WrapError(core.ErrNetwork, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrMalformedResponse, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
