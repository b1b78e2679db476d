package github

import (
	"encoding/json"
	"time"
)

// Event is a partial GitHub repository event document with fields we use.
// CreatedAt stays a raw string so one bad timestamp rejects one record, not the page
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Actor     Actor           `json:"actor"`
	Repo      RepoRef         `json:"repo"`
	Public    bool            `json:"public"`
	CreatedAt string          `json:"created_at"`
	Action    string          `json:"action,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Actor is the event actor stub GitHub embeds in feed records
type Actor struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// RepoRef is the repository stub GitHub embeds in feed records.
// Name is the "owner/name" pair, not the bare repository name
type RepoRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// EventsPage is the typed result of one feed page fetch.
// Status carries the upstream HTTP status so callers own the paging policy;
// RateLimitReset is zero when the reset header was absent
type EventsPage struct {
	Status         int
	Events         []Event
	RateLimitReset time.Time
}
