package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"propmap/spot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultRequestTimeout = 10 * time.Second

// Client retrieves raw spot records from the RBN map feed endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a feed client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchSpots issues GET {base}/api/rbn?callsign=<c>&limit=<n> and converts the
// JSON payload into spots. Records missing a reporter, frequency, or
// timestamp are skipped, not treated as errors.
func (c *Client) FetchSpots(ctx context.Context, callsign string, limit int) ([]spot.Spot, error) {
	endpoint, err := url.Parse(c.baseURL + "/api/rbn")
	if err != nil {
		return nil, fmt.Errorf("feed: bad base URL: %w", err)
	}
	query := endpoint.Query()
	query.Set("callsign", callsign)
	query.Set("limit", strconv.Itoa(limit))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var records []rawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("feed: parse payload: %w", err)
	}
	spots := make([]spot.Spot, 0, len(records))
	for i := range records {
		if s, ok := records[i].toSpot(); ok {
			spots = append(spots, s)
		}
	}
	return spots, nil
}
