package module

import (
	"time"

	"contribsync/internal/platform/config"
)

// Options holds configuration options for the backfill module
type Options struct {
	RunID string

	DaysBack  int
	RepoDelay time.Duration

	MaxPages       int
	PerPage        int
	PageDelay      time.Duration
	RateWaitMax    time.Duration
	RateWaitMargin time.Duration

	GitHubBaseURL   string
	GitHubToken     string
	GitHubUserAgent string
	GitHubTimeout   time.Duration
}

// FromConfig reads the backfill options from config with CORE_BACKFILL_ and GITHUB_ prefixes
func FromConfig(cfg config.Conf) Options {
	bf := cfg.Prefix("CORE_BACKFILL_")
	gh := cfg.Prefix("GITHUB_")
	return Options{
		RunID: bf.MayString("RUN_ID", ""),

		DaysBack:  bf.MayInt("DAYS", 30),
		RepoDelay: bf.MayDuration("REPO_DELAY", 2*time.Second),

		MaxPages:       bf.MayInt("MAX_PAGES", 10),
		PerPage:        bf.MayInt("PER_PAGE", 100),
		PageDelay:      bf.MayDuration("PAGE_DELAY", 500*time.Millisecond),
		RateWaitMax:    bf.MayDuration("RATE_WAIT_MAX", time.Hour),
		RateWaitMargin: bf.MayDuration("RATE_WAIT_MARGIN", 60*time.Second),

		GitHubBaseURL:   gh.MayString("BASE_URL", ""),
		GitHubToken:     gh.MayString("TOKEN", ""),
		GitHubUserAgent: gh.MayString("USER_AGENT", ""),
		GitHubTimeout:   gh.MayDuration("TIMEOUT", 30*time.Second),
	}
}
