package linesource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gojek/heimdall/v7/httpclient"
)

// ErrSourceNotFound indicates the remote folded file does not exist.
var ErrSourceNotFound = errors.New("folded source not found")

// Client fetches folded files over HTTP with retries.
type Client struct {
	http *httpclient.Client
}

func NewClient(timeout time.Duration, retries int) Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Client{
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(timeout),
			httpclient.WithRetryCount(retries),
		),
	}
}

// FetchLines downloads a folded file and returns its lines.
// lz4-compressed responses are decompressed transparently.
func (c Client) FetchLines(ctx context.Context, url string) ([]string, error) {
	span := sentry.StartSpan(ctx, "http.client")
	span.Description = "Fetch folded source"
	defer span.Finish()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrSourceNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	return FromReader(resp.Body)
}
