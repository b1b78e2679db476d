// Package ingest provides the feed pagination cursor and event normalizer
package ingest

import (
	"context"
	"net/http"
	"time"

	"contribsync/internal/platform/logger"
	"contribsync/internal/services/backfill/domain"
)

// CursorConfig bounds one repository's paging effort
type CursorConfig struct {
	// MaxPages caps pages per repository so one noisy repo cannot eat the
	// whole rate-limit budget; <=0 -> 10
	MaxPages int

	// PerPage is the feed page size; <=0 -> 100
	PerPage int

	// PageDelay is the courtesy delay between successful page fetches;
	// 0 -> 500ms, negative disables
	PageDelay time.Duration

	// RateWaitMax bounds how long a rate-limit reset wait may be before the
	// repository is abandoned instead; <=0 -> 1h
	RateWaitMax time.Duration

	// RateWaitMargin is added on top of the advertised reset time; <=0 -> 60s
	RateWaitMargin time.Duration
}

func (c CursorConfig) withDefaults() CursorConfig {
	if c.MaxPages <= 0 {
		c.MaxPages = 10
	}
	if c.PerPage <= 0 {
		c.PerPage = 100
	}
	if c.PageDelay == 0 {
		c.PageDelay = 500 * time.Millisecond
	} else if c.PageDelay < 0 {
		c.PageDelay = 0
	}
	if c.RateWaitMax <= 0 {
		c.RateWaitMax = time.Hour
	}
	if c.RateWaitMargin <= 0 {
		c.RateWaitMargin = 60 * time.Second
	}
	return c
}

// retained event types; everything else in the feed is noise for the cache
var allowedTypes = map[string]struct{}{
	"WatchEvent":       {},
	"ForkEvent":        {},
	"PullRequestEvent": {},
	"IssuesEvent":      {},
	"StarEvent":        {},
}

// Cursor pages through one repository's event feed until a time cutoff.
//
// Precondition: the upstream feed is ordered newest-first. The cursor stops at
// the first record older than the cutoff; on an unordered feed it would
// under-collect older qualifying events.
type Cursor struct {
	feed domain.FeedPort
	cfg  CursorConfig

	// seams for tests
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewCursor builds a cursor over the given feed
func NewCursor(feed domain.FeedPort, cfg CursorConfig) *Cursor {
	return &Cursor{
		feed:  feed,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// FetchEvents collects in-window events of the allowed types for owner/name.
//
// Every page fetch counts one API call, whatever its outcome. Upstream
// statuses soft-stop paging: 404 and unexpected statuses end the repository
// quietly; 403/429 waits for the advertised reset (plus margin, bounded by
// RateWaitMax) and retries the same page, or soft-stops when the wait is
// unknown or too long. Only a transport failure surfaces as an error, and
// even then the events already collected are returned
func (c *Cursor) FetchEvents(ctx context.Context, owner, name string, daysBack int) ([]domain.RawEvent, int, error) {
	log := logger.C(ctx)
	cutoff := c.now().UTC().Add(-time.Duration(daysBack) * 24 * time.Hour)

	var out []domain.RawEvent
	calls := 0
	page := 1

	for page <= c.cfg.MaxPages {
		pg, err := c.feed.RepoEvents(ctx, owner, name, page, c.cfg.PerPage)
		calls++
		if err != nil {
			return out, calls, err
		}

		switch {
		case pg.Status == http.StatusNotFound:
			log.Warn().Str("repo", owner+"/"+name).Msg("repository not found upstream")
			return out, calls, nil

		case pg.Status == http.StatusForbidden || pg.Status == http.StatusTooManyRequests:
			wait := c.rateWait(pg.RateLimitReset)
			if wait < 0 {
				log.Warn().Str("repo", owner+"/"+name).Msg("rate limited with no usable reset; abandoning repository")
				return out, calls, nil
			}
			log.Warn().Dur("wait", wait).Int("page", page).Msg("rate limited; waiting for reset")
			if err := c.sleep(ctx, wait); err != nil {
				return out, calls, err
			}
			continue // retry the same page

		case pg.Status != http.StatusOK:
			log.Warn().Int("status", pg.Status).Str("repo", owner+"/"+name).Msg("unexpected feed status; stopping pagination")
			return out, calls, nil
		}

		if len(pg.Events) == 0 {
			return out, calls, nil // end of feed
		}

		for _, ev := range pg.Events {
			ts, perr := time.Parse(time.RFC3339, ev.CreatedAt)
			if perr != nil {
				log.Debug().Str("event_id", ev.ID).Str("created_at", ev.CreatedAt).Msg("unparseable event timestamp; skipping record")
				continue
			}
			if ts.Before(cutoff) {
				// feed is newest-first; everything after this is out of window
				log.Debug().Int("page", page).Msg("reached cutoff date")
				return out, calls, nil
			}
			if _, ok := allowedTypes[ev.Type]; ok {
				out = append(out, ev)
			}
		}

		page++
		if page <= c.cfg.MaxPages && c.cfg.PageDelay > 0 {
			if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
				return out, calls, err
			}
		}
	}

	return out, calls, nil
}

// rateWait computes how long to wait for a rate-limit reset.
// Returns -1 when the reset is unknown or the wait exceeds RateWaitMax
func (c *Cursor) rateWait(reset time.Time) time.Duration {
	if reset.IsZero() {
		return -1
	}
	wait := reset.Sub(c.now()) + c.cfg.RateWaitMargin
	if wait < c.cfg.RateWaitMargin {
		wait = c.cfg.RateWaitMargin
	}
	if wait > c.cfg.RateWaitMax {
		return -1
	}
	return wait
}

// CursorFactory builds a fresh cursor per repository; cursors are single-use
type CursorFactory struct {
	feed domain.FeedPort
	cfg  CursorConfig
}

// NewCursorFactory returns a factory over the given feed
func NewCursorFactory(feed domain.FeedPort, cfg CursorConfig) *CursorFactory {
	return &CursorFactory{feed: feed, cfg: cfg}
}

// New implements domain.CursorFactory
func (f *CursorFactory) New() domain.CursorPort { return NewCursor(f.feed, f.cfg) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
