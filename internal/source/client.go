// Package source downloads the currently offered appointment slots.
//
// The endpoint returns a JSON array of observations, each naming the location
// and the slot start as local wall-clock time:
//
//	[{"location": "Bürgeramt Mitte", "time": "2024-05-01T09:00"}]
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrDownload marks a failed snapshot download. Callers skip the cycle
// instead of treating the snapshot as empty.
var ErrDownload = errors.New("download appointments")

const timeLayout = "2006-01-02T15:04"

// Observation is one slot as published by the source.
type Observation struct {
	Location string
	When     time.Time
}

type observationJSON struct {
	Location string `json:"location"`
	Time     string `json:"time"`
}

// Client fetches snapshots over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient allows one request per second so manual refreshes cannot hammer
// the upstream site.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		logger:     logger,
	}
}

// Fetch downloads the full current snapshot.
func (c *Client) Fetch(ctx context.Context) ([]Observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrDownload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrDownload, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDownload, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrDownload, resp.StatusCode, truncate(body, 200))
	}

	var raw []observationJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrDownload, err)
	}

	out := make([]Observation, 0, len(raw))
	for i, r := range raw {
		name := strings.TrimSpace(r.Location)
		if name == "" {
			return nil, fmt.Errorf("%w: entry %d has no location", ErrDownload, i)
		}
		when, err := time.Parse(timeLayout, r.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrDownload, i, err)
		}
		out = append(out, Observation{Location: name, When: when})
	}

	c.logger.Debug("downloaded appointments", "count", len(out), "duration", time.Since(start))
	return out, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
