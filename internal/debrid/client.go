// Package debrid talks to a debrid service to check cache status and
// resolve sources to direct download links.
package debrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
)

// ErrNotCached is returned when a source has no instant-play copy on the
// debrid service.
var ErrNotCached = errors.New("source not cached on debrid service")

// Config holds debrid client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client is a thin debrid API client. Transient failures are retried with
// backoff; 4xx responses are terminal.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// ResolvedLink is a direct, playable link for a source.
type ResolvedLink struct {
	SourceID  string    `json:"sourceId"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename,omitempty"`
	SizeBytes int64     `json:"sizeBytes,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// New creates a debrid client.
func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "debrid").Logger(),
	}
}

// Enabled reports whether the client has credentials configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// CheckCached reports which of the given info hashes have an instant-play
// copy on the service. Unknown hashes map to false.
func (c *Client) CheckCached(ctx context.Context, hashes []string) (map[string]bool, error) {
	if len(hashes) == 0 {
		return map[string]bool{}, nil
	}

	endpoint := fmt.Sprintf("%s/torrents/instantAvailability/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), strings.Join(hashes, "/"))

	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	cached := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		entry, ok := raw[strings.ToLower(h)]
		// The API returns an empty array for uncached hashes and an object
		// keyed by hoster for cached ones.
		cached[h] = ok && len(entry) > 0 && entry[0] == '{'
	}
	return cached, nil
}

// Resolve unrestricts a source link into a direct download URL.
func (c *Client) Resolve(ctx context.Context, sourceID, link string) (*ResolvedLink, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/unrestrict/link"
	form := url.Values{"link": {link}}

	var payload struct {
		Download string `json:"download"`
		Filename string `json:"filename"`
		Filesize int64  `json:"filesize"`
	}
	if err := c.postForm(ctx, endpoint, form, &payload); err != nil {
		return nil, err
	}
	if payload.Download == "" {
		return nil, ErrNotCached
	}

	return &ResolvedLink{
		SourceID:  sourceID,
		URL:       payload.Download,
		Filename:  payload.Filename,
		SizeBytes: payload.Filesize,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, out)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, out)
}

// doWithRetry executes the request, retrying transient failures. A fresh
// request is built per attempt so bodies are re-readable.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error), out interface{}) error {
	return retry.Do(
		func() error {
			req, err := build()
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				return json.NewDecoder(resp.Body).Decode(out)
			case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
				return fmt.Errorf("debrid service busy: status %d", resp.StatusCode)
			case resp.StatusCode >= 500:
				return fmt.Errorf("debrid service error: status %d", resp.StatusCode)
			default:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return retry.Unrecoverable(fmt.Errorf("debrid request rejected: status %d: %s", resp.StatusCode, body))
			}
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Uint("attempt", n+1).Err(err).Msg("Retrying debrid request")
		}),
	)
}
