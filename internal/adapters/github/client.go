// Package github provides a minimal GitHub REST v3 client for the events backfill
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"time"

	perr "contribsync/internal/platform/errors"
	"contribsync/internal/platform/logger"
)

const (
	baseURLDefault = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	defaultUA      = "contribsync-workspace-backfill"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Personal access token; empty means tokenless which is very low quota
	Token string
}

// Client fetches pages of the per-repository events feed.
// It does NOT retry or sleep on rate limits; non-2xx statuses are returned
// as typed pages so the pagination cursor owns that policy
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("github"),
	}
}

// RepoEvents fetches one page of /repos/{owner}/{name}/events
// A non-nil error means the transport failed; upstream statuses (404, 403,
// 5xx, ...) come back inside the EventsPage
func (c *Client) RepoEvents(ctx context.Context, owner, name string, page, perPage int) (EventsPage, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/events?page=%d&per_page=%d",
		c.opts.BaseURL, url.PathEscape(owner), url.PathEscape(name), page, perPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return EventsPage{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "github new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "token "+c.opts.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return EventsPage{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github events fetch failed")
	}
	defer func() {
		if cerr := drainAndClose(resp.Body); cerr != nil {
			c.log.Error().Err(cerr).Str("repo", owner+"/"+name).Msg("github close body failed")
		}
	}()

	rem, reset, retryAfter := parseRateHeaders(resp.Header)
	c.log.Debug().
		Str("repo", owner+"/"+name).
		Int("page", page).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Int("rate_remaining", rem).
		Time("rate_reset", reset).
		Int("retry_after_s", retryAfter).
		Msg("github events response")

	out := EventsPage{Status: resp.StatusCode, RateLimitReset: reset}
	if resp.StatusCode != http.StatusOK {
		return out, nil
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return EventsPage{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github events read failed")
	}
	if err := json.Unmarshal(b, &out.Events); err != nil {
		return EventsPage{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "github events decode failed")
	}
	return out, nil
}
