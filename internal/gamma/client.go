// Package gamma talks to the Polymarket Gamma metadata API and normalizes
// its shape-polymorphic payloads into canonical records.
package gamma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"tradeScope/internal/model"
)

// Config holds client settings. RetryBaseDelay grows exponentially per
// attempt (delay = base * 2^attempt).
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Client is the Gamma API client. All calls retry transport and HTTP-status
// failures with exponential backoff; the final attempt's error surfaces
// wrapped in model.ErrMetadataUnavailable.
type Client struct {
	base       string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration)
	logger     *zap.Logger
}

// NewClient creates a Gamma client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// SetSleep replaces the backoff sleeper. Tests inject a fake clock here.
func (c *Client) SetSleep(sleep func(time.Duration)) {
	c.sleep = sleep
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// FetchEventWithMarkets returns the provider event object for a slug plus
// its market objects. The per-slug endpoint is attempted first, then the
// search endpoint; markets embedded in the event win over the markets
// endpoint. Fails with model.ErrMetadataNotFound when no endpoint yields a
// usable event, or model.ErrMetadataUnavailable when retries are exhausted.
func (c *Client) FetchEventWithMarkets(ctx context.Context, slug string) (map[string]any, []map[string]any, error) {
	event, err := c.fetchEvent(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	markets := objectList(event["markets"])
	if len(markets) == 0 {
		payload, err := c.getJSON(ctx, "/markets", url.Values{"eventSlug": {slug}, "limit": {"500"}})
		if err != nil {
			return nil, nil, err
		}
		markets = objectList(unwrapList(payload, "data", "markets"))
	}

	return event, markets, nil
}

func (c *Client) fetchEvent(ctx context.Context, slug string) (map[string]any, error) {
	// Preferred endpoint: any shaped non-empty object is accepted.
	payload, err := c.getJSON(ctx, "/events/"+url.PathEscape(slug), nil)
	if err == nil {
		if event, ok := payload.(map[string]any); ok && len(event) > 0 {
			return event, nil
		}
	} else {
		c.logger.Debug("gamma: per-slug event lookup failed, trying search",
			zap.String("slug", slug), zap.Error(err))
	}

	// Fallback: search endpoint filtered by slug, bare list or envelope.
	payload, err = c.getJSON(ctx, "/events", url.Values{"slug": {slug}, "limit": {"1"}})
	if err != nil {
		return nil, err
	}
	if items := objectList(unwrapList(payload, "data", "events")); len(items) > 0 {
		return items[0], nil
	}

	return nil, fmt.Errorf("%w: event slug %q", model.ErrMetadataNotFound, slug)
}

// getJSON performs one GET with bounded exponential retry. A success
// response that does not decode as JSON counts as a failure for retry
// purposes. No retry happens after the last attempt.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values) (any, error) {
	endpoint := c.base + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		payload, err := c.doGet(ctx, endpoint)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if attempt+1 == c.maxRetries {
			break
		}
		delay := c.baseDelay * time.Duration(1<<uint(attempt))
		c.logger.Warn("gamma: request failed, retrying",
			zap.String("url", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		c.sleep(delay)
	}

	return nil, fmt.Errorf("%w: get %s: %v", model.ErrMetadataUnavailable, endpoint, lastErr)
}

func (c *Client) doGet(ctx context.Context, endpoint string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// UseNumber keeps uint256 token ids intact; float64 would mangle them.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

// unwrapList accepts a bare list or an envelope object exposing the list
// under one of the given field names.
func unwrapList(payload any, envelopeKeys ...string) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range envelopeKeys {
			if items, ok := v[key].([]any); ok {
				return items
			}
		}
	}
	return nil
}

// objectList keeps only object-shaped entries.
func objectList(raw any) []map[string]any {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
