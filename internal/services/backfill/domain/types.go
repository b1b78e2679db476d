// Package domain holds the core business logic and data structures for the
// workspace events backfill
package domain

import (
	"time"

	"contribsync/internal/adapters/github"
)

// RawEvent re-exports the upstream feed record shape consumed by the cursor and normalizer
type RawEvent = github.Event

// EventsPage re-exports the typed page result returned by the feed client
type EventsPage = github.EventsPage

// RepositoryTarget is one repository tracked by a workspace.
// Produced by the directory lookup; consumed once per backfill pass
type RepositoryTarget struct {
	Owner     string
	Name      string
	Workspace string
}

// FullName returns the owner/name pair
func (t RepositoryTarget) FullName() string { return t.Owner + "/" + t.Name }

// NormalizedEvent is the canonical form persisted into github_events_cache.
// Rows are keyed by (EventID, CreatedAt); a repeat write for the same key only
// refreshes processed_at and appends to processing_notes
type NormalizedEvent struct {
	EventID         string         `validate:"required"`
	EventType       string         `validate:"required"`
	ActorLogin      string         `validate:"required"`
	RepositoryOwner string         `validate:"required"`
	RepositoryName  string         `validate:"required"`
	Payload         map[string]any `validate:"required"`
	CreatedAt       time.Time      `validate:"required"`
	ProcessingNotes string
}

// RunStats accumulates process-scoped counters for one backfill pass.
// Execution is sequential, so plain ints are fine; the orchestrator owns the
// value and returns it when the run ends
type RunStats struct {
	ReposProcessed int
	EventsFetched  int
	EventsInserted int
	APICalls       int
	Errors         int
}
